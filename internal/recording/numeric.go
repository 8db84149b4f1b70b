package recording

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prevo-go/recto/internal/measurement"
	"github.com/prevo-go/recto/internal/sensor"
)

// NumericFormatter implements Formatter for numeric sensors: it
// forwards the raw reading's values, tagged with the Recording's name
// (spec.md §4.5).
type NumericFormatter struct {
	name string
}

// NewNumericFormatter creates a NumericFormatter for the given
// Recording name.
func NewNumericFormatter(name string) *NumericFormatter {
	return &NumericFormatter{name: name}
}

// Format implements Formatter.
func (f *NumericFormatter) Format(raw sensor.Reading, now time.Time, dt time.Duration) measurement.Measurement {
	return measurement.NewNumeric(f.name, now, dt, raw.Values)
}

// NumericSaver implements Saver for numeric sinks: a delimited-column
// text file with a header row written once, appended thereafter.
// Grounded on db.go's column-oriented persistence and the original
// source's recto/fileio.py sink.
type NumericSaver struct {
	path        string
	sep         string
	headers     []string
	formatValue func(v float64) string

	file *os.File
}

// NumericSaverOption configures a NumericSaver.
type NumericSaverOption func(*NumericSaver)

// WithSeparator overrides the default tab field separator.
func WithSeparator(sep string) NumericSaverOption {
	return func(s *NumericSaver) { s.sep = sep }
}

// WithValueFormatter overrides the default %v-free float formatting.
func WithValueFormatter(f func(float64) string) NumericSaverOption {
	return func(s *NumericSaver) { s.formatValue = f }
}

// NewNumericSaver creates a NumericSaver writing to path. valueColumns
// names the value columns following `time (unix), dt (s)` in the
// header (spec.md §6).
func NewNumericSaver(path string, valueColumns []string, opts ...NumericSaverOption) *NumericSaver {
	s := &NumericSaver{
		path:        path,
		sep:         "\t",
		headers:     append([]string{"time (unix)", "dt (s)"}, valueColumns...),
		formatValue: func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open opens the sink in append mode, writing the header once if the
// sink is new or empty.
func (s *NumericSaver) Open() error {
	needHeader := sinkNeedsHeader(s.path)
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open numeric sink %s: %w", s.path, err)
	}
	s.file = f
	if needHeader {
		if _, err := f.WriteString(strings.Join(s.headers, s.sep) + "\n"); err != nil {
			return fmt.Errorf("write numeric sink header %s: %w", s.path, err)
		}
	}
	return nil
}

// Save appends one row: time_unix, dt_s, then each value.
func (s *NumericSaver) Save(m measurement.Measurement) error {
	fields := make([]string, 0, 2+len(m.Values))
	fields = append(fields, strconv.FormatInt(m.Time.Unix(), 10))
	fields = append(fields, s.formatValue(m.Dt.Seconds()))
	for _, v := range m.Values {
		fields = append(fields, s.formatValue(v))
	}
	_, err := s.file.WriteString(strings.Join(fields, s.sep) + "\n")
	return err
}

// Close closes the sink.
func (s *NumericSaver) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// sinkNeedsHeader reports whether path does not yet exist or is empty.
func sinkNeedsHeader(path string) bool {
	info, err := os.Stat(path)
	return err != nil || info.Size() == 0
}
