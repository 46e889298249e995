package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

var (
	// ErrNoPages is returned when an extraction carries neither a page list
	// nor a top-level preview or token list.
	ErrNoPages = errors.New("extraction has no pages")

	// ErrPageOutOfRange is returned for a page index outside the previews.
	ErrPageOutOfRange = errors.New("page index out of range")
)

// FieldPosition is where the backend found a structured field value.
type FieldPosition struct {
	BBox        *BBox   `json:"bbox,omitempty"`
	CharPercent float64 `json:"char_percent"`
	LinePercent float64 `json:"line_percent"`
	LineNumber  int     `json:"line_number"`
	TotalLines  int     `json:"total_lines"`
	Page        int     `json:"page"`
}

// FieldValue is one structured field as extracted by the backend.
type FieldValue struct {
	Value      string         `json:"value"`
	Confidence float64        `json:"confidence"`
	Position   *FieldPosition `json:"position,omitempty"`
}

// UnmarshalJSON accepts numeric and null values as well as strings, since
// amounts are sometimes emitted as numbers.
func (f *FieldValue) UnmarshalJSON(data []byte) error {
	var raw struct {
		Value      json.RawMessage `json:"value"`
		Confidence float64         `json:"confidence"`
		Position   *FieldPosition  `json:"position"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Confidence = raw.Confidence
	f.Position = raw.Position
	f.Value = ""

	if len(raw.Value) == 0 || string(raw.Value) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.Value, &s); err == nil {
		f.Value = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw.Value, &n); err != nil {
		return fmt.Errorf("field value: %w", err)
	}
	f.Value = n.String()
	return nil
}

// Page is one rendered page of the document with its own token list.
type Page struct {
	Index       int     `json:"-"`
	Preview     string  `json:"file_preview"`
	PreviewMIME string  `json:"file_preview_mime"`
	ImageWidth  float64 `json:"preview_image_width"`
	ImageHeight float64 `json:"preview_image_height"`
	Tokens      []Token `json:"all_extracted_text"`
}

// Extraction is the extraction backend's response for one uploaded document.
type Extraction struct {
	Preview        string  `json:"file_preview"`
	PreviewMIME    string  `json:"file_preview_mime"`
	ImageWidth     float64 `json:"preview_image_width"`
	ImageHeight    float64 `json:"preview_image_height"`
	Tokens         []Token `json:"all_extracted_text"`
	RawPages       []Page  `json:"pages"`
	PageCount      int     `json:"page_count"`
	PagesTruncated bool    `json:"pages_truncated"`
	RawText        string  `json:"raw_text"`

	// Fields holds the registered invoice fields present in the response,
	// keyed by field key. Field objects sit at the top level of the JSON.
	Fields map[string]FieldValue `json:"-"`
}

// UnmarshalJSON decodes the fixed keys and then picks the registered field
// objects out of the top-level map.
func (e *Extraction) UnmarshalJSON(data []byte) error {
	type plain Extraction
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return err
	}

	p.Fields = make(map[string]FieldValue)
	for _, spec := range Fields {
		raw, ok := top[spec.Key]
		if !ok || string(raw) == "null" {
			continue
		}
		var fv FieldValue
		if err := json.Unmarshal(raw, &fv); err != nil {
			return fmt.Errorf("field %s: %w", spec.Key, err)
		}
		p.Fields[spec.Key] = fv
	}

	*e = Extraction(p)
	return nil
}

// Parse decodes an extraction response.
func Parse(r io.Reader) (*Extraction, error) {
	var e Extraction
	if err := json.NewDecoder(r).Decode(&e); err != nil {
		return nil, fmt.Errorf("decode extraction: %w", err)
	}
	if len(e.Pages()) == 0 {
		return nil, ErrNoPages
	}
	return &e, nil
}

// Load reads and decodes an extraction file.
func Load(path string) (*Extraction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	e, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return e, nil
}

// Pages returns the rendered pages. A response without a page list is a
// single page described by the top-level preview and tokens.
func (e *Extraction) Pages() []Page {
	if len(e.RawPages) > 0 {
		pages := make([]Page, len(e.RawPages))
		for i, p := range e.RawPages {
			p.Index = i
			pages[i] = p
		}
		return pages
	}
	if e.Preview == "" && len(e.Tokens) == 0 && e.ImageWidth == 0 {
		return nil
	}
	return []Page{{
		Preview:     e.Preview,
		PreviewMIME: e.PreviewMIME,
		ImageWidth:  e.ImageWidth,
		ImageHeight: e.ImageHeight,
		Tokens:      e.Tokens,
	}}
}

// Page returns the page at index i.
func (e *Extraction) Page(i int) (Page, error) {
	pages := e.Pages()
	if i < 0 || i >= len(pages) {
		return Page{}, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, i, len(pages))
	}
	return pages[i], nil
}

// TotalPages is the document's page count as reported by the backend, which
// can exceed the number of rendered previews when the list was truncated.
func (e *Extraction) TotalPages() int {
	if e.PageCount > 0 {
		return e.PageCount
	}
	return len(e.Pages())
}

// FieldBox is a structured field value that can be clicked on a page.
type FieldBox struct {
	Key      string
	Value    string
	Position *FieldPosition
}

// FieldBoxes returns the clickable structured field boxes on a page in
// registry order. Fields without a value or a bounding box are skipped.
func (e *Extraction) FieldBoxes(page int) []FieldBox {
	var boxes []FieldBox
	for _, spec := range Fields {
		fv, ok := e.Fields[spec.Key]
		if !ok || fv.Value == "" || fv.Position == nil || fv.Position.BBox == nil {
			continue
		}
		if fv.Position.Page != page {
			continue
		}
		boxes = append(boxes, FieldBox{Key: spec.Key, Value: fv.Value, Position: fv.Position})
	}
	return boxes
}

// InitialValues returns the extracted value of every registered field, with
// missing fields mapped to the empty string.
func (e *Extraction) InitialValues() map[string]string {
	values := make(map[string]string, len(Fields))
	for _, spec := range Fields {
		values[spec.Key] = e.Fields[spec.Key].Value
	}
	return values
}

// String summarises the extraction for log lines.
func (e *Extraction) String() string {
	return "extraction(pages=" + strconv.Itoa(len(e.Pages())) +
		", fields=" + strconv.Itoa(len(e.Fields)) + ")"
}
