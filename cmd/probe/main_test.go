package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const probeDoc = `{
  "preview_image_width": 800,
  "preview_image_height": 1000,
  "all_extracted_text": [
    {"text": "INV-2024-001", "x": 100, "y": 50, "width": 120, "height": 20},
    {"text": "", "x": 10, "y": 10, "width": 5, "height": 5}
  ],
  "totalAmount": {"value": "99.00",
    "position": {"bbox": {"x": 600, "y": 900, "width": 100, "height": 20}}}
}`

func writeDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extraction.json")
	require.NoError(t, os.WriteFile(path, []byte(probeDoc), 0o644))
	return path
}

func TestProbeArmedTokenClick(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"--extraction", writeDoc(t), "--zoom", "50", "--x", "50", "--y", "25", "--arm", "vendorName"}, &out)
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "displayed 400.0x500.0")
	assert.Contains(t, s, "intrinsic (100.0, 50.0)")
	assert.Contains(t, s, `Hit token 0 "INV-2024-001" (inside`)
	assert.Contains(t, s, `Assign vendorName: tokens "INV-2024-001"`)
	assert.Contains(t, s, "(not hittable)")
}

func TestProbeFieldBoxClick(t *testing.T) {
	var out bytes.Buffer
	// Field box at 600,900 is drawn at 599,899 at 100%.
	err := run([]string{writeDoc(t), "--x", "620", "--y", "905", "--boxes=false"}, &out)
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "Hit field box totalAmount")
	assert.Contains(t, s, "Assign totalAmount: structured-box")
	assert.NotContains(t, s, "Token  Text")
}

func TestProbeMiss(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"-e", writeDoc(t), "--x", "400", "--y", "500"}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Hit nothing")
}

func TestProbeErrors(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run(nil, &out))
	assert.Error(t, run([]string{"-e", writeDoc(t), "--arm", "nope"}, &out))
	assert.Error(t, run([]string{"-e", writeDoc(t), "--page", "3"}, &out))
	assert.Error(t, run([]string{"-e", filepath.Join(t.TempDir(), "missing.json")}, &out))
}

func TestProbeVersion(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"--version"}, &out))
	assert.Contains(t, out.String(), "probe ")
}
