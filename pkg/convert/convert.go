// Package convert implements the temperature conversion feature.
//
// The math is intentionally trivial; the interesting part is the Input type,
// which enforces the "exactly one scale supplied" rule so route handlers can
// reject malformed requests before any usage is metered.
package convert

// CToF converts degrees Celsius to degrees Fahrenheit.
func CToF(c float64) float64 {
	return c*9/5 + 32
}

// FToC converts degrees Fahrenheit to degrees Celsius.
func FToC(f float64) float64 {
	return (f - 32) * 5 / 9
}

// Input is a conversion request body. Exactly one of C or F must be set.
type Input struct {
	C *float64 `json:"C,omitempty"`
	F *float64 `json:"F,omitempty"`
}

// Valid reports whether exactly one temperature field is present.
func (in Input) Valid() bool {
	return (in.C != nil) != (in.F != nil)
}

// Result holds the converted value. The field that was absent in the input
// is the one populated here.
type Result struct {
	C *float64 `json:"C,omitempty"`
	F *float64 `json:"F,omitempty"`
}

// Convert performs the conversion for a valid input.
func Convert(in Input) Result {
	if in.C != nil {
		f := CToF(*in.C)
		return Result{F: &f}
	}
	c := FToC(*in.F)
	return Result{C: &c}
}
