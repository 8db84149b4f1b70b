package unitconv_test

import (
	"testing"

	"github.com/prevo-go/recto/internal/unitconv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerSecond_KnownUnits(t *testing.T) {
	cases := []struct {
		slope float64
		unit  string
		want  float64
	}{
		{25, "/min", 25.0 / 60},
		{3600, "/h", 1},
		{5, "/s", 5},
	}
	for _, c := range cases {
		got, err := unitconv.PerSecond(c.slope, c.unit)
		require.NoError(t, err)
		assert.InDelta(t, c.want, got, 1e-9)
	}
}

func TestPerSecond_UnknownUnit(t *testing.T) {
	_, err := unitconv.PerSecond(1, "/fortnight")
	assert.Error(t, err)
}
