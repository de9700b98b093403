package cmd

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRealPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func exampleTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	mango := filepath.Join(root, "Xoài cát")
	durian := filepath.Join(root, "Sầu riêng")
	require.NoError(t, os.MkdirAll(mango, 0o755))
	require.NoError(t, os.MkdirAll(durian, 0o755))

	writeRealPNG(t, filepath.Join(mango, "1.png"), 4, 3)
	writeRealPNG(t, filepath.Join(mango, "2.png"), 8, 8)
	require.NoError(t, os.WriteFile(filepath.Join(durian, "notes.txt"), []byte("not an image"), 0o644))
	return root
}

func TestExamplesCheck_JSON(t *testing.T) {
	root := exampleTree(t)
	out := &bytes.Buffer{}

	cmd := NewExamplesCommand(out)
	cmd.SetArgs([]string{"check", root, "-o", "json"})
	require.NoError(t, cmd.Execute())

	var report []exampleLabelReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	require.Len(t, report, 2)

	assert.Equal(t, "Sầu riêng", report[0].Label)
	require.Len(t, report[0].Images, 1)
	assert.Contains(t, report[0].Images[0].Problem, "invalid image format")

	assert.Equal(t, "Xoài cát", report[1].Label)
	require.Len(t, report[1].Images, 2)
	assert.Equal(t, 4, report[1].Images[0].Width)
	assert.Equal(t, 3, report[1].Images[0].Height)
	assert.Empty(t, report[1].Images[1].Problem)
}

func TestExamplesCheck_Text(t *testing.T) {
	root := exampleTree(t)
	out := &bytes.Buffer{}

	cmd := NewExamplesCommand(out)
	cmd.SetArgs([]string{"check", root})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "Xoài cát")
	assert.Contains(t, out.String(), "4x3")
	assert.Contains(t, out.String(), "2 label(s), 1 problem(s)")
}

func TestExamplesCheck_LabelProblems(t *testing.T) {
	root := t.TempDir()
	for _, label := range []string{"Bơ sáp", "BƠ SÁP", "Trống"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, label), 0o755))
	}
	writeRealPNG(t, filepath.Join(root, "Bơ sáp", "a.png"), 2, 2)
	writeRealPNG(t, filepath.Join(root, "BƠ SÁP", "b.png"), 2, 2)

	report, err := checkExampleDir(root)
	require.NoError(t, err)
	require.Len(t, report, 3)

	byLabel := map[string]exampleLabelReport{}
	for _, lr := range report {
		byLabel[lr.Label] = lr
	}
	problems := 0
	for _, label := range []string{"Bơ sáp", "BƠ SÁP"} {
		if byLabel[label].Problem != "" {
			problems++
			assert.Contains(t, byLabel[label].Problem, "duplicate label")
		}
	}
	assert.Equal(t, 1, problems, "the second spelling conflicts with the first")
	assert.Contains(t, byLabel["Trống"].Problem, "empty image set")
}

func TestExamplesCheck_MissingDir(t *testing.T) {
	cmd := NewExamplesCommand(&bytes.Buffer{})
	cmd.SetArgs([]string{"check", filepath.Join(t.TempDir(), "missing")})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	assert.Error(t, cmd.Execute())
}
