package convert

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var personOnly = Options{Width: 640, Height: 480, Classes: map[string]int{"person": 0}}

func TestWriteYOLOLines(t *testing.T) {
	var a Annotation
	a.RectMask.XMin, a.RectMask.YMin, a.RectMask.Width, a.RectMask.Height = 100, 50, 200, 350
	a.Labels.LabelName = "person"
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []Annotation{a}, personOnly))
	assert.Equal(t, "0 0.312500 0.468750 0.312500 0.729167\n", buf.String())
}

func TestWriteUnknownLabelWritesNothing(t *testing.T) {
	var ok, bad Annotation
	ok.Labels.LabelName = "person"
	ok.RectMask.Width, ok.RectMask.Height = 10, 10
	bad.Labels.LabelName = "dog"
	var buf bytes.Buffer
	err := Write(&buf, []Annotation{ok, bad}, personOnly)
	var lme *LabelMappingError
	require.True(t, errors.As(err, &lme))
	assert.Equal(t, "dog", lme.Label)
	assert.Zero(t, buf.Len())
}

func TestWriteValidatesOptions(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, nil, Options{Width: 0, Height: 10, Classes: map[string]int{"a": 0}}))
	assert.Error(t, Write(&bytes.Buffer{}, nil, Options{Width: 10, Height: 10}))
}

func TestFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "labels")
	p, err := File("testdata/people3.json", out, personOnly)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "people3.txt"), p)
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "0 0.312500 0.468750 0.312500 0.729167\n0 0.050000 0.050000 0.100000 0.100000\n", string(b))
}

func TestFileUnknownLabelLeavesNoOutput(t *testing.T) {
	out := t.TempDir()
	_, err := File("testdata/people3.json", out, Options{Width: 640, Height: 480, Classes: map[string]int{"car": 0}})
	var lme *LabelMappingError
	require.True(t, errors.As(err, &lme))
	assert.Equal(t, "testdata/people3.json", lme.File)
	assert.NoFileExists(t, filepath.Join(out, "people3.txt"))
}

func TestFileBadInput(t *testing.T) {
	dir := t.TempDir()
	_, err := File(filepath.Join(dir, "missing.json"), dir, personOnly)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"rectMask":`), 0o644))
	_, err = File(bad, dir, personOnly)
	assert.Error(t, err)
}

func TestPathsExpandsDirectories(t *testing.T) {
	in := t.TempDir()
	src, err := os.ReadFile("testdata/people3.json")
	require.NoError(t, err)
	for _, name := range []string{"a.json", "b.JSON", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(in, name), src, 0o644))
	}
	out := t.TempDir()
	outs, err := Paths([]string{in}, out, personOnly)
	require.NoError(t, err)
	require.Len(t, outs, 2)
	assert.FileExists(t, filepath.Join(out, "a.txt"))
	assert.FileExists(t, filepath.Join(out, "b.txt"))

	_, err = Paths([]string{t.TempDir()}, out, personOnly)
	assert.Error(t, err)
}

func TestParseClassPairs(t *testing.T) {
	m, err := ParseClassPairs([]string{"person=0", " car = 2 "})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"person": 0, "car": 2}, m)

	for _, bad := range []string{"person", "=1", "person=x", "person=-1"} {
		_, err := ParseClassPairs([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestClassesFromFile(t *testing.T) {
	m, err := ClassesFromFile("testdata/dataset.yaml")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"person": 0, "bicycle": 1}, m)
}
