package recording

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/prevo-go/recto/internal/measurement"
	"github.com/prevo-go/recto/internal/sensor"
)

// DefaultImageExt returns the file extension an image Recording uses
// when none is configured explicitly, without a leading dot: "tif" in
// continuous mode, where frames arrive too fast for a lossy/compressed
// codec to keep up, and "png" otherwise (spec.md §6).
func DefaultImageExt(continuous bool) string {
	if continuous {
		return "tif"
	}
	return "png"
}

// ImageFormatter implements Formatter for image sensors: it tags each
// raw reading's image payload with a monotonically increasing
// per-sensor sequence number. The counter is seeded from the sink's
// existing contents on resume (spec.md §9 open question (i)).
type ImageFormatter struct {
	name string
	ext  string

	mu  sync.Mutex
	num int
}

// NewImageFormatter creates an ImageFormatter for the given Recording
// name and file extension, starting numbering at startNum (normally
// the value returned by ImageSaver.ResumeNum on a fresh session).
func NewImageFormatter(name, ext string, startNum int) *ImageFormatter {
	return &ImageFormatter{name: name, ext: ext, num: startNum}
}

// Format implements Formatter. Image is expected in raw.Image; raw
// numeric Values are ignored.
func (f *ImageFormatter) Format(raw sensor.Reading, now time.Time, dt time.Duration) measurement.Measurement {
	f.mu.Lock()
	num := f.num
	f.num++
	f.mu.Unlock()

	return measurement.NewImage(f.name, now, dt, raw.Image, num, f.ext)
}

// ImageSaver implements Saver for image sinks: each Measurement is
// written as its own binary file under dir, named
// "<sensor>-<num>.<ext>" with num zero-padded to width digits, and a
// line is appended to a tab-separated timestamp sink recording which
// file was written when. Grounded on the original source's per-frame
// image dump alongside a companion index file.
type ImageSaver struct {
	dir    string
	name   string
	width  int
	tsPath string

	tsFile *os.File
}

// NewImageSaver creates an ImageSaver writing image files into dir and
// a timestamp index at tsPath. width sets the zero-padded digit count
// of the filename's sequence number (0 disables padding).
func NewImageSaver(dir, name string, width int, tsPath string) *ImageSaver {
	return &ImageSaver{dir: dir, name: name, width: width, tsPath: tsPath}
}

// Open opens the timestamp sink in append mode, writing its header
// once if the sink is new or empty.
func (s *ImageSaver) Open() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create image dir %s: %w", s.dir, err)
	}
	needHeader := sinkNeedsHeader(s.tsPath)
	f, err := os.OpenFile(s.tsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open image timestamp sink %s: %w", s.tsPath, err)
	}
	s.tsFile = f
	if needHeader {
		if _, err := f.WriteString("time (unix)\tdt (s)\tfile\n"); err != nil {
			return fmt.Errorf("write image timestamp header %s: %w", s.tsPath, err)
		}
	}
	return nil
}

// Save writes m's image payload to its own file and appends a row to
// the timestamp sink recording that file's name.
func (s *ImageSaver) Save(m measurement.Measurement) error {
	filename := s.filenameFor(m.Num, m.Ext)
	imgPath := filepath.Join(s.dir, filename)
	if err := os.WriteFile(imgPath, m.Image, 0644); err != nil {
		return fmt.Errorf("write image file %s: %w", imgPath, err)
	}

	row := fmt.Sprintf("%d\t%s\t%s\n",
		m.Time.Unix(),
		strconv.FormatFloat(m.Dt.Seconds(), 'f', -1, 64),
		filename,
	)
	_, err := s.tsFile.WriteString(row)
	return err
}

// Close closes the timestamp sink.
func (s *ImageSaver) Close() error {
	if s.tsFile == nil {
		return nil
	}
	err := s.tsFile.Close()
	s.tsFile = nil
	return err
}

// ResumeNum reports the next unused sequence number by counting the
// existing timestamp sink's lines. A fresh or absent sink resumes at
// 0. A sink with its header plus n data rows resumes at n: the header
// line and the n rows for the already-used sequence numbers 0..n-1
// together make n+1 lines, so lines-1 is exactly the next unused
// number. This deliberately avoids the off-by-one that reusing
// n_lines-1 against the data-only count would produce (spec.md §9
// open question (i)).
func (s *ImageSaver) ResumeNum() (int, error) {
	f, err := os.Open(s.tsPath)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open image timestamp sink %s: %w", s.tsPath, err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read image timestamp sink %s: %w", s.tsPath, err)
	}
	if lines == 0 {
		return 0, nil
	}
	return lines - 1, nil
}

func (s *ImageSaver) filenameFor(num int, ext string) string {
	if s.width > 0 {
		return fmt.Sprintf("%s-%0*d.%s", s.name, s.width, num, ext)
	}
	return fmt.Sprintf("%s-%d.%s", s.name, num, ext)
}
