package document

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"invoice-annotator/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const singlePage = `{
  "preview_image_width": 800,
  "preview_image_height": 1000,
  "raw_text": "INV-2024-001 Total",
  "all_extracted_text": [
    {"text": "INV-2024-001", "x": 100, "y": 50, "width": 120, "height": 20},
    null,
    {"text": "Total", "x": 100, "y": 300, "width": 60, "height": 20}
  ],
  "invoiceNumber": {"value": "INV-2024-001", "confidence": 0.93,
    "position": {"bbox": {"x": 100, "y": 50, "width": 120, "height": 20}, "line_number": 2}},
  "totalAmount": {"value": 1234.5, "confidence": 0.7},
  "currency": {"value": null},
  "unknownField": {"value": "ignored"}
}`

func TestParseSinglePage(t *testing.T) {
	e, err := Parse(strings.NewReader(singlePage))
	require.NoError(t, err)

	pages := e.Pages()
	require.Len(t, pages, 1)
	assert.Equal(t, 0, pages[0].Index)
	assert.Len(t, pages[0].Tokens, 3)
	assert.False(t, pages[0].Tokens[1].Hittable(), "null token decodes to an empty, unhittable token")
	assert.Equal(t, 1, e.TotalPages())

	assert.Equal(t, "INV-2024-001", e.Fields["invoiceNumber"].Value)
	assert.Equal(t, "1234.5", e.Fields["totalAmount"].Value)
	assert.Equal(t, "", e.Fields["currency"].Value)
	_, ok := e.Fields["unknownField"]
	assert.False(t, ok)

	values := e.InitialValues()
	assert.Len(t, values, len(Fields))
	assert.Equal(t, "INV-2024-001", values["invoiceNumber"])
	assert.Equal(t, "", values["iban"])
}

func TestFieldBoxes(t *testing.T) {
	e, err := Parse(strings.NewReader(singlePage))
	require.NoError(t, err)

	boxes := e.FieldBoxes(0)
	require.Len(t, boxes, 1, "totalAmount has no bbox and is not clickable")
	assert.Equal(t, "invoiceNumber", boxes[0].Key)
	assert.Empty(t, e.FieldBoxes(1))
}

func TestParseMultiPage(t *testing.T) {
	doc := `{
	  "page_count": 5,
	  "pages_truncated": true,
	  "pages": [
	    {"preview_image_width": 600, "preview_image_height": 800,
	     "all_extracted_text": [{"text": "a", "x": 1, "y": 1, "width": 2, "height": 2}]},
	    {"preview_image_width": 600, "preview_image_height": 800, "all_extracted_text": []}
	  ]
	}`
	e, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Len(t, e.Pages(), 2)
	assert.Equal(t, 5, e.TotalPages())
	assert.True(t, e.PagesTruncated)

	p, err := e.Page(1)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Index)

	_, err = e.Page(2)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(strings.NewReader(`{}`))
	assert.ErrorIs(t, err, ErrNoPages)

	_, err = Parse(strings.NewReader(`{"invoiceNumber": {"value": true}, "file_preview": "x"}`))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader(`not json`))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extraction.json")
	require.NoError(t, os.WriteFile(path, []byte(singlePage), 0o644))

	e, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "extraction(pages=1, fields=3)", e.String())

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func encodePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDecodeImage(t *testing.T) {
	p := Page{Preview: encodePNG(t, 40, 50), PreviewMIME: "image/png"}
	img, err := p.DecodeImage()
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())

	withPrefix := Page{Preview: "data:image/png;base64," + encodePNG(t, 3, 4)}
	img, err = withPrefix.DecodeImage()
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dy())

	_, err = Page{}.DecodeImage()
	assert.ErrorIs(t, err, ErrNoPreview)

	_, err = Page{Preview: "!!!"}.DecodeImage()
	assert.Error(t, err)
}

func TestIntrinsicSize(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 300, 400))

	assert.Equal(t, geometry.NewSize(800, 1000), Page{ImageWidth: 800, ImageHeight: 1000}.IntrinsicSize(img))
	assert.Equal(t, geometry.NewSize(300, 400), Page{}.IntrinsicSize(img))
	assert.True(t, Page{}.IntrinsicSize(nil).IsEmpty())
}

func TestTokenPosition(t *testing.T) {
	tok := Token{Text: "Total", X: 100, Y: 300, Width: 60, Height: 20}
	pos := TokenPosition(tok, geometry.NewSize(800, 1000))
	require.NotNil(t, pos)

	assert.Equal(t, 100.0, pos.X)
	assert.Equal(t, 300.0, pos.Y)
	assert.InDelta(t, 12.5, pos.CharPercent, 1e-9)
	assert.InDelta(t, 30, pos.LinePercent, 1e-9)
	assert.Equal(t, 15, pos.LineNumber)
	assert.Equal(t, 100, pos.CharOffset)
	assert.Equal(t, VirtualLines, pos.TotalLines)
	assert.Equal(t, 800, pos.LineLength)
	assert.Equal(t, &BBox{X: 100, Y: 300, Width: 60, Height: 20}, pos.BBox)
	assert.Equal(t, 800.0, pos.ImageWidth)
	assert.Equal(t, 1000.0, pos.ImageHeight)

	assert.Nil(t, TokenPosition(tok, geometry.Size{}))
}

func TestFieldBoxPosition(t *testing.T) {
	size := geometry.NewSize(800, 1000)

	fromBox := FieldBoxPosition(&FieldPosition{
		BBox:       &BBox{X: 200, Y: 100, Width: 50, Height: 10},
		LineNumber: 3,
	}, size)
	require.NotNil(t, fromBox)
	assert.InDelta(t, 25, fromBox.CharPercent, 1e-9)
	assert.InDelta(t, 10, fromBox.LinePercent, 1e-9)
	assert.Equal(t, 3, fromBox.LineNumber)
	assert.Equal(t, VirtualLines, fromBox.TotalLines)
	require.NotNil(t, fromBox.BBox)
	assert.Equal(t, 200.0, fromBox.BBox.X)

	fromPercent := FieldBoxPosition(&FieldPosition{CharPercent: 50, LinePercent: 20, TotalLines: 40}, size)
	require.NotNil(t, fromPercent)
	assert.Equal(t, 400.0, fromPercent.X)
	assert.Equal(t, 200.0, fromPercent.Y)
	assert.Equal(t, 40, fromPercent.TotalLines)
	assert.Nil(t, fromPercent.BBox)

	assert.Nil(t, FieldBoxPosition(nil, size))
	assert.Nil(t, FieldBoxPosition(&FieldPosition{}, geometry.Size{}))
}

func TestFieldRegistry(t *testing.T) {
	assert.Len(t, Fields, 12)

	spec, ok := LookupField("totalAmount")
	require.True(t, ok)
	assert.True(t, spec.Required)
	assert.Equal(t, "IBAN", FieldLabel("iban"))
	assert.Equal(t, "nope", FieldLabel("nope"))
}
