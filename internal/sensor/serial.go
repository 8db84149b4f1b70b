package sensor

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.bug.st/serial"
)

// SerialSensor reads newline-delimited, comma-separated numeric samples
// from a serial port. It is grounded on the teacher's serial.go
// RadarPort and internal/serialmux/port.go SerialPorter: same
// baud/parity/stopbits defaults, same bufio.Scanner-over-the-port
// read loop.
type SerialSensor struct {
	name     string
	portName string
	mode     *serial.Mode

	port    serial.Port
	scanner *bufio.Scanner
}

// NewSerialSensor creates a SerialSensor bound to portName at the given
// baud rate. Open must be called before the first Read.
func NewSerialSensor(name, portName string, baud int) *SerialSensor {
	return &SerialSensor{
		name:     name,
		portName: portName,
		mode: &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
	}
}

// Name returns the sensor's stable identifier.
func (s *SerialSensor) Name() string { return s.name }

// Open opens the serial port and prepares the line scanner.
func (s *SerialSensor) Open(ctx context.Context) error {
	port, err := serial.Open(s.portName, s.mode)
	if err != nil {
		return fmt.Errorf("open serial sensor %s on %s: %w", s.name, s.portName, err)
	}
	s.port = port
	s.scanner = bufio.NewScanner(port)
	return nil
}

// Close closes the serial port.
func (s *SerialSensor) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// Read scans one line and parses it as comma-separated float64 fields.
// Any scan or parse failure is a sensor read failure.
func (s *SerialSensor) Read(ctx context.Context) (Reading, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return Reading{}, fmt.Errorf("%w: %s: %v", ErrReadFailed, s.name, err)
		}
		return Reading{}, fmt.Errorf("%w: %s: port closed", ErrReadFailed, s.name)
	}

	line := strings.TrimSpace(s.scanner.Text())
	if line == "" {
		return Reading{}, fmt.Errorf("%w: %s: empty line", ErrReadFailed, s.name)
	}

	fields := strings.Split(line, ",")
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return Reading{}, fmt.Errorf("%w: %s: parse field %q: %v", ErrReadFailed, s.name, f, err)
		}
		values = append(values, v)
	}
	return Reading{Values: values}, nil
}
