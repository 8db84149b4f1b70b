// Package measurement defines the tagged Measurement variant produced
// by a Recording's formatter from a raw Sensor reading, per the design
// note in spec.md §9 ("Dynamic typing of measurement records").
package measurement

import "time"

// Kind distinguishes the two Measurement payload shapes.
type Kind int

const (
	// KindNumeric carries a vector of numeric values.
	KindNumeric Kind = iota
	// KindImage carries an image payload and a monotonic sequence number.
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

// Measurement is a record produced by a Recording from a raw Sensor
// reading (spec.md §3). Exactly one of Values or Image is meaningful,
// selected by Kind.
type Measurement struct {
	Kind Kind
	Name string
	Time time.Time
	Dt   time.Duration

	// Values holds the numeric payload when Kind == KindNumeric.
	Values []float64

	// Image holds the raw image bytes, Num the monotonically
	// increasing per-sensor sequence number, and Ext the file
	// extension to persist with, when Kind == KindImage.
	Image []byte
	Num   int
	Ext   string

	// null marks the "do not persist" sentinel a formatter returns to
	// skip persistence for a given reading (spec.md §3). Use Null() to
	// construct one and IsNull to test for it.
	null bool
}

// Null returns the sentinel Measurement a formatter returns to signal
// that this reading must not be enqueued for saving or plotting.
func Null() Measurement {
	return Measurement{null: true}
}

// IsNull reports whether m is the null sentinel.
func (m Measurement) IsNull() bool {
	return m.null
}

// NewNumeric constructs a numeric Measurement.
func NewNumeric(name string, t time.Time, dt time.Duration, values []float64) Measurement {
	return Measurement{Kind: KindNumeric, Name: name, Time: t, Dt: dt, Values: values}
}

// NewImage constructs an image Measurement with the given sequence
// number and file extension.
func NewImage(name string, t time.Time, dt time.Duration, image []byte, num int, ext string) Measurement {
	return Measurement{Kind: KindImage, Name: name, Time: t, Dt: dt, Image: image, Num: num, Ext: ext}
}
