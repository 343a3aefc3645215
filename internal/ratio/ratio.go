package ratio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidRatioFormat is returned when an aspect ratio string cannot be
// parsed into two positive integers separated by a colon.
var ErrInvalidRatioFormat = errors.New("invalid aspect ratio format")

// squareTolerance is the decimal distance from 1.0 within which a ratio
// is still considered square.
const squareTolerance = 0.01

// Ratio is an aspect ratio as a pair of positive integers. Immutable value type.
type Ratio struct {
	W int
	H int
}

// Parse parses a "W:H" string into a Ratio.
func Parse(s string) (Ratio, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return Ratio{}, fmt.Errorf("%w: %q", ErrInvalidRatioFormat, s)
	}

	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Ratio{}, fmt.Errorf("%w: %q", ErrInvalidRatioFormat, s)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Ratio{}, fmt.Errorf("%w: %q", ErrInvalidRatioFormat, s)
	}

	if w <= 0 || h <= 0 {
		return Ratio{}, fmt.Errorf("%w: %q (components must be positive)", ErrInvalidRatioFormat, s)
	}

	return Ratio{W: w, H: h}, nil
}

// MustParse parses a ratio string and panics on error. Intended for constants.
func MustParse(s string) Ratio {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

// String formats the ratio as "W:H".
func (r Ratio) String() string {
	return strconv.Itoa(r.W) + ":" + strconv.Itoa(r.H)
}

// Decimal returns the ratio as width divided by height.
func (r Ratio) Decimal() float64 {
	return float64(r.W) / float64(r.H)
}

// IsSquare reports whether the ratio is square within tolerance.
func (r Ratio) IsSquare() bool {
	d := r.Decimal() - 1.0
	return d < squareTolerance && d > -squareTolerance
}

// IsPortrait reports whether the ratio is taller than wide (and not square).
func (r Ratio) IsPortrait() bool {
	return !r.IsSquare() && r.Decimal() < 1.0
}

// IsLandscape reports whether the ratio is wider than tall (and not square).
func (r Ratio) IsLandscape() bool {
	return !r.IsSquare() && r.Decimal() > 1.0
}

// supportedRatio pairs a ratio string with its precomputed decimal value.
type supportedRatio struct {
	name    string
	decimal float64
}

// supportedRatios is the fixed set of aspect ratios the generation backends
// accept natively. Process-wide constant, never mutated at runtime.
var supportedRatios = []supportedRatio{
	{"1:1", 1.0},
	{"3:4", 3.0 / 4.0},
	{"4:3", 4.0 / 3.0},
	{"9:16", 9.0 / 16.0},
	{"16:9", 16.0 / 9.0},
}

// IsSupported reports whether the backends accept the ratio string natively.
func IsSupported(s string) bool {
	for _, sr := range supportedRatios {
		if sr.name == s {
			return true
		}
	}
	return false
}

// SupportedRatios returns the names of all natively supported ratios.
func SupportedRatios() []string {
	names := make([]string, len(supportedRatios))
	for i, sr := range supportedRatios {
		names[i] = sr.name
	}
	return names
}
