package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereceipt/label-engine/internal/registry"
)

const shelfLayout = `{
  "name": "Shelf tag",
  "width": 86,
  "height": 120,
  "layout_data": [
    {"id": "t1", "type": "text", "x": 10, "y": 10, "width": 60, "height": 8,
     "properties": {"text": "{ITEM_CODIGO}", "fontSize": 3}}
  ]
}`

const shelfFrame = "^XA\n^CI28\n^PW687\n^LL959\n^MMT\n^LH0,0\n^FO80,80^A0N,24,24^FB480,4,0,L,0^FDABC1^FS\n^XZ\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("LABEL_PRINTER", "")
	t.Setenv("LABEL_DPI", "")
	t.Setenv("SERVER_PORT", "")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestParseRecords(t *testing.T) {
	records, err := parseRecords([]byte(`[{"ITEM_CODIGO": "A"}, {"ITEM_CODIGO": 7891234567895123}]`))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, json.Number("7891234567895123"), records[1]["ITEM_CODIGO"])

	records, err = parseRecords([]byte(`{"data": [{"x": 1}]}`))
	require.NoError(t, err)
	require.Len(t, records, 1)

	records, err = parseRecords([]byte("  "))
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = parseRecords([]byte(`[{"x": }]`))
	assert.Error(t, err)
}

func TestVarsFlag(t *testing.T) {
	var v varsFlag
	require.NoError(t, v.Set("b=2"))
	require.NoError(t, v.Set("a=x=y"))
	assert.Equal(t, "a=x=y,b=2", v.String())

	assert.Error(t, v.Set("novalue"))
	assert.Error(t, v.Set("=1"))
}

func TestRunRender(t *testing.T) {
	dir := t.TempDir()
	layout := writeFile(t, dir, "shelf.json", shelfLayout)
	data := writeFile(t, dir, "items.json", `[{"ITEM_CODIGO": "ABC1"}, {"ITEM_CODIGO": "ABC2"}]`)

	code, stdout, stderr := runCLI(t, "render", "-layout", layout, "-data", data)
	require.Equal(t, 0, code, stderr)

	assert.True(t, strings.HasPrefix(stdout, shelfFrame))
	assert.Equal(t, 2, strings.Count(stdout, "^XA"))
	assert.Contains(t, stdout, "^FDABC2^FS")
}

func TestRunRenderVars(t *testing.T) {
	dir := t.TempDir()
	layout := writeFile(t, dir, "shelf.json", shelfLayout)
	out := filepath.Join(dir, "labels.zpl")

	code, _, stderr := runCLI(t, "render", "-layout", layout, "-var", "ITEM_CODIGO=ABC1", "-out", out)
	require.Equal(t, 0, code, stderr)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, shelfFrame, string(written))
}

func TestRunRenderFlags(t *testing.T) {
	dir := t.TempDir()
	layout := writeFile(t, dir, "shelf.json", shelfLayout)

	code, stdout, stderr := runCLI(t, "render", "-layout", layout, "-var", "ITEM_CODIGO=X",
		"-dpi", "300", "-offset-left", "1")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "^PW1016\n")
	// 10mm + 1mm at 300 dpi
	assert.Contains(t, stdout, "^FO130,118")
}

func TestRunRenderErrors(t *testing.T) {
	dir := t.TempDir()
	layout := writeFile(t, dir, "shelf.json", shelfLayout)

	code, _, stderr := runCLI(t, "render")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "-layout is required")

	code, _, stderr = runCLI(t, "render", "-layout", layout)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "no data records")

	code, _, stderr = runCLI(t, "render", "-layout", layout, "-var", "A=1", "-dpi", "-3")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "dpi")

	code, _, _ = runCLI(t, "engrave")
	assert.Equal(t, 1, code)

	code, _, _ = runCLI(t)
	assert.Equal(t, 1, code)
}

func TestRunPreview(t *testing.T) {
	dir := t.TempDir()
	layout := writeFile(t, dir, "shelf.json", shelfLayout)
	data := writeFile(t, dir, "items.json", `{"data": [{"ITEM_CODIGO": "ABC1"}]}`)
	out := filepath.Join(dir, "label.png")

	code, _, stderr := runCLI(t, "preview", "-layout", layout, "-data", data, "-out", out)
	require.Equal(t, 0, code, stderr)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 687, img.Bounds().Dx())

	code, _, stderr = runCLI(t, "preview", "-layout", layout, "-data", data, "-record", "4", "-out", out)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "out of range")
}

func TestRunPrintToDevice(t *testing.T) {
	dir := t.TempDir()
	layout := writeFile(t, dir, "shelf.json", shelfLayout)
	device := writeFile(t, dir, "lp0", "")

	code, stdout, stderr := runCLI(t, "print", "-layout", layout, "-var", "ITEM_CODIGO=ABC1", "-printer", "file://"+device)
	require.Equal(t, 0, code, stderr)
	assert.Empty(t, stdout)

	written, err := os.ReadFile(device)
	require.NoError(t, err)
	assert.Equal(t, shelfFrame, string(written))
}

func TestRunPrintFailureWritesStream(t *testing.T) {
	dir := t.TempDir()
	layout := writeFile(t, dir, "shelf.json", shelfLayout)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	code, stdout, stderr := runCLI(t, "print", "-layout", layout, "-var", "ITEM_CODIGO=ABC1", "-printer", addr)
	assert.Equal(t, 1, code)
	assert.Equal(t, shelfFrame, stdout)
	assert.Contains(t, stderr, "print failed")
}

func TestRunPrintNeedsTarget(t *testing.T) {
	dir := t.TempDir()
	layout := writeFile(t, dir, "shelf.json", shelfLayout)

	code, _, stderr := runCLI(t, "print", "-layout", layout, "-var", "ITEM_CODIGO=ABC1")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "-printer is required")
}

func TestRunPrintRegisteredName(t *testing.T) {
	dir := t.TempDir()
	layout := writeFile(t, dir, "shelf.json", shelfLayout)
	device := writeFile(t, dir, "lp0", "")

	reg, err := registry.New(filepath.Join(dir, "printers.json"))
	require.NoError(t, err)
	_, err = reg.Add("backroom", "file://"+device, "usblp")
	require.NoError(t, err)

	cfg := writeFile(t, dir, "label-engine.yaml", "printer:\n  registry_path: printers.json\n")

	code, _, stderr := runCLI(t, "print", "-config", cfg, "-layout", layout, "-var", "ITEM_CODIGO=ABC1", "-printer", "backroom")
	require.Equal(t, 0, code, stderr)

	written, err := os.ReadFile(device)
	require.NoError(t, err)
	assert.Equal(t, shelfFrame, string(written))

	code, stdout, stderr := runCLI(t, "ports", "-config", cfg)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "backroom")
}
