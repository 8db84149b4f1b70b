// Package unitconv converts Teeth slope units to a per-second factor,
// grounded on prevo/control/program.py's Teeth slope-to-duration
// conversion (spec.md §4.7).
package unitconv

import "fmt"

// secondsPer maps a slope time unit to the number of seconds it spans.
var secondsPer = map[string]float64{
	"/s":   1,
	"/min": 60,
	"/h":   3600,
}

// PerSecond converts a slope expressed as quantity-per-unit into a
// quantity-per-second factor. unit must be one of "/s", "/min", "/h".
func PerSecond(slope float64, unit string) (float64, error) {
	divisor, ok := secondsPer[unit]
	if !ok {
		return 0, fmt.Errorf("unitconv: unknown slope unit %q", unit)
	}
	return slope / divisor, nil
}
