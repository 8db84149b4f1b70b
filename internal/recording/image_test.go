package recording_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prevo-go/recto/internal/measurement"
	"github.com/prevo-go/recto/internal/recording"
	"github.com/prevo-go/recto/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultImageExt_TifInContinuousModePngOtherwise(t *testing.T) {
	assert.Equal(t, "tif", recording.DefaultImageExt(true))
	assert.Equal(t, "png", recording.DefaultImageExt(false))
}

func TestImageFormatter_IncrementsNumFromStart(t *testing.T) {
	f := recording.NewImageFormatter("cam0", "png", 5)

	m1 := f.Format(sensor.Reading{Image: []byte("a")}, time.Unix(1, 0), 0)
	m2 := f.Format(sensor.Reading{Image: []byte("b")}, time.Unix(2, 0), 0)

	assert.Equal(t, 5, m1.Num)
	assert.Equal(t, 6, m2.Num)
	assert.Equal(t, "png", m1.Ext)
	assert.Equal(t, measurement.KindImage, m1.Kind)
}

func TestImageSaver_WritesImageFileAndTimestampRow(t *testing.T) {
	dir := t.TempDir()
	imgDir := filepath.Join(dir, "images")
	tsPath := filepath.Join(dir, "cam0-ts.tsv")

	s := recording.NewImageSaver(imgDir, "cam0", 4, tsPath)
	require.NoError(t, s.Open())
	m := measurement.NewImage("cam0", time.Unix(100, 0), time.Second, []byte("binarydata"), 3, "png")
	require.NoError(t, s.Save(m))
	require.NoError(t, s.Close())

	imgData, err := os.ReadFile(filepath.Join(imgDir, "cam0-0003.png"))
	require.NoError(t, err)
	assert.Equal(t, "binarydata", string(imgData))

	tsData, err := os.ReadFile(tsPath)
	require.NoError(t, err)
	lines := splitLines(string(tsData))
	require.Len(t, lines, 2)
	assert.Equal(t, "time (unix)\tdt (s)\tfile", lines[0])
	assert.Equal(t, "100\t1\tcam0-0003.png", lines[1])
}

func TestImageSaver_ResumeNum_FreshSinkStartsAtZero(t *testing.T) {
	dir := t.TempDir()
	tsPath := filepath.Join(dir, "absent-ts.tsv")

	s := recording.NewImageSaver(dir, "cam0", 0, tsPath)
	num, err := s.ResumeNum()
	require.NoError(t, err)
	assert.Equal(t, 0, num)
}

func TestImageSaver_ResumeNum_OneExistingRowResumesAtOneNotZero(t *testing.T) {
	// Regresses the off-by-one bug flagged in the design notes: a sink
	// with exactly one already-saved image (num=0) must resume at 1,
	// never reuse num=0 and overwrite the existing file.
	dir := t.TempDir()
	tsPath := filepath.Join(dir, "cam0-ts.tsv")

	s := recording.NewImageSaver(dir, "cam0", 0, tsPath)
	require.NoError(t, s.Open())
	require.NoError(t, s.Save(measurement.NewImage("cam0", time.Unix(1, 0), 0, []byte("x"), 0, "png")))
	require.NoError(t, s.Close())

	resumed, err := s.ResumeNum()
	require.NoError(t, err)
	assert.Equal(t, 1, resumed, "must resume past the already-used num=0, not reuse it")
}

func TestImageSaver_ResumeNum_ManyExistingRows(t *testing.T) {
	dir := t.TempDir()
	tsPath := filepath.Join(dir, "cam0-ts.tsv")

	s := recording.NewImageSaver(dir, "cam0", 0, tsPath)
	require.NoError(t, s.Open())
	for i := 0; i < 7; i++ {
		require.NoError(t, s.Save(measurement.NewImage("cam0", time.Unix(int64(i), 0), 0, []byte("x"), i, "png")))
	}
	require.NoError(t, s.Close())

	resumed, err := s.ResumeNum()
	require.NoError(t, err)
	assert.Equal(t, 7, resumed)
}
