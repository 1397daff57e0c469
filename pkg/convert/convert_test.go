package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCToF(t *testing.T) {
	tests := []struct {
		name string
		c    float64
		want float64
	}{
		{"freezing", 0, 32},
		{"boiling", 100, 212},
		{"body temp", 37, 98.6},
		{"negative forty", -40, -40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CToF(tt.c), 1e-9)
		})
	}
}

func TestFToC(t *testing.T) {
	tests := []struct {
		name string
		f    float64
		want float64
	}{
		{"freezing", 32, 0},
		{"boiling", 212, 100},
		{"negative forty", -40, -40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, FToC(tt.f), 1e-9)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, c := range []float64{-273.15, -40, 0, 0.5, 36.6, 100, 451} {
		assert.InDelta(t, c, FToC(CToF(c)), 1e-9)
	}
}

func TestInputValid(t *testing.T) {
	c := 0.0
	f := 32.0

	assert.True(t, Input{C: &c}.Valid())
	assert.True(t, Input{F: &f}.Valid())
	assert.False(t, Input{}.Valid())
	assert.False(t, Input{C: &c, F: &f}.Valid())
}

func TestConvert(t *testing.T) {
	c := 0.0
	res := Convert(Input{C: &c})
	assert.Nil(t, res.C)
	assert.NotNil(t, res.F)
	assert.InDelta(t, 32.0, *res.F, 1e-9)

	f := 212.0
	res = Convert(Input{F: &f})
	assert.Nil(t, res.F)
	assert.NotNil(t, res.C)
	assert.InDelta(t, 100.0, *res.C, 1e-9)
}
