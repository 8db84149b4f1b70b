package measurement_test

import (
	"testing"
	"time"

	"github.com/prevo-go/recto/internal/measurement"
	"github.com/stretchr/testify/assert"
)

func TestNull_IsNull(t *testing.T) {
	m := measurement.Null()
	assert.True(t, m.IsNull())
}

func TestNewNumeric_IsNotNull(t *testing.T) {
	m := measurement.NewNumeric("sensorA", time.Now(), time.Second, []float64{1, 2, 3})
	assert.False(t, m.IsNull())
	assert.Equal(t, measurement.KindNumeric, m.Kind)
	assert.Equal(t, "numeric", m.Kind.String())
}

func TestNewImage_CarriesSequenceNumber(t *testing.T) {
	m := measurement.NewImage("cam1", time.Now(), 0, []byte{0xff}, 7, ".png")
	assert.False(t, m.IsNull())
	assert.Equal(t, measurement.KindImage, m.Kind)
	assert.Equal(t, 7, m.Num)
	assert.Equal(t, "image", m.Kind.String())
}
