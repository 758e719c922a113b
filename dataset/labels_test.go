package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLabelFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadLabelFileTwoFields(t *testing.T) {
	path := writeLabelFile(t, `
img_1.png normal
img_2.png pneumonia
img_3.png COVID-19
img_4.png covid
`)

	split, err := LoadLabelFile(path)
	require.NoError(t, err)

	assert.Len(t, split.NonCovid, 2)
	assert.Len(t, split.Covid, 2)
	assert.Equal(t, "img_1.png", split.NonCovid[0].ImageID)
	assert.Equal(t, LabelNonCovid, split.NonCovid[0].Label)
	assert.Equal(t, "img_3.png", split.Covid[0].ImageID)
	assert.Equal(t, LabelCovid, split.Covid[0].Label)
}

func TestLoadLabelFileFourFields(t *testing.T) {
	path := writeLabelFile(t, `
patient-12 img_a.png normal rsna
patient-19 img_b.png COVID-19 sirm
`)

	split, err := LoadLabelFile(path)
	require.NoError(t, err)

	require.Len(t, split.NonCovid, 1)
	require.Len(t, split.Covid, 1)
	assert.Equal(t, "img_a.png", split.NonCovid[0].ImageID)
	assert.Equal(t, "img_b.png", split.Covid[0].ImageID)
}

func TestLoadLabelFileCaseInsensitiveCovid(t *testing.T) {
	path := writeLabelFile(t, "img.png Covid-19\n")

	split, err := LoadLabelFile(path)
	require.NoError(t, err)
	assert.Len(t, split.Covid, 1)
	assert.Empty(t, split.NonCovid)
}

func TestLoadLabelFileMalformedLine(t *testing.T) {
	path := writeLabelFile(t, "img.png normal extra\n")
	_, err := LoadLabelFile(path)
	assert.Error(t, err)
}

func TestLoadLabelFileEmpty(t *testing.T) {
	path := writeLabelFile(t, "\n\n")
	_, err := LoadLabelFile(path)
	assert.Error(t, err)
}

func TestLoadLabelFileMissing(t *testing.T) {
	_, err := LoadLabelFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestSplitAll(t *testing.T) {
	split := &Split{
		NonCovid: []Sample{{ImageID: "a", Label: LabelNonCovid}},
		Covid:    []Sample{{ImageID: "b", Label: LabelCovid}},
	}

	all := split.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ImageID)
	assert.Equal(t, "b", all[1].ImageID)
}
