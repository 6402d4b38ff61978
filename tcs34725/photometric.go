package tcs34725

import (
	"errors"
	"math"
)

var (
	// ErrSaturated marks a sample whose clear channel is at or above the
	// saturation threshold for the configured integration time. The CCT
	// returned alongside it is 0.
	ErrSaturated = errors.New("sample is saturated")

	// ErrDegenerateReading marks input the formulas cannot work with,
	// such as an all-zero sample or a zero IR-compensated red channel.
	ErrDegenerateReading = errors.New("degenerate sensor reading")
)

// CalculateLux estimates illuminance from the raw R/G/B values using the
// reference channel weighting. The result is truncated; it can be
// negative under strongly IR-dominated light, which callers should treat
// as "no meaningful reading".
func (tcs *TCS34725) CalculateLux(r, g, b uint16) int32 {
	illuminance := -0.32466*float64(r) + 1.57837*float64(g) - 0.73191*float64(b)
	return int32(illuminance)
}

// CalculateColorTemperature converts raw R/G/B values to a correlated
// color temperature in Kelvin via an XYZ transform and McCamy's formula.
// The transform coefficients were fit against 6500K fluorescent, 3000K
// fluorescent and 60W incandescent sources.
func (tcs *TCS34725) CalculateColorTemperature(r, g, b uint16) (uint16, error) {
	if r == 0 && g == 0 && b == 0 {
		return 0, ErrDegenerateReading
	}

	// Map RGB to an XYZ-like tristimulus space. Y is illuminance.
	x := -0.14282*float64(r) + 1.54924*float64(g) - 0.95641*float64(b)
	y := -0.32466*float64(r) + 1.57837*float64(g) - 0.73191*float64(b)
	z := -0.68202*float64(r) + 0.77073*float64(g) + 0.56332*float64(b)

	sum := x + y + z
	if sum == 0 {
		return 0, ErrDegenerateReading
	}
	xc := x / sum
	yc := y / sum

	// McCamy's cubic approximation.
	if yc == 0.1858 {
		return 0, ErrDegenerateReading
	}
	n := (xc - 0.3320) / (0.1858 - yc)
	cct := 449.0*math.Pow(n, 3) + 3525.0*math.Pow(n, 2) + 6823.3*n + 5520.33

	if cct < 0 || cct > 65535 || math.IsNaN(cct) {
		return 0, ErrDegenerateReading
	}
	return uint16(cct), nil
}

// CalculateColorTemperatureDN40 derives color temperature and lux from a
// raw RGBC sample using the AMS DN40 method: reject saturated samples,
// infer and subtract the IR component, then estimate CCT from the
// blue/red ratio and lux from an IR-compensated channel weighting.
func (tcs *TCS34725) CalculateColorTemperatureDN40(r, g, b, c uint16) (cct uint16, lux float64, err error) {
	if c == 0 {
		return 0, 0, ErrDegenerateReading
	}

	// The clear channel accumulates 1024 counts per 2.4ms cycle, to a
	// ceiling of 65535. Above 63 cycles (>153.6ms) the digital ceiling
	// is reached first; below it the analog front-end saturates first.
	cycles := 256 - int(tcs.IntegrationTime)
	var sat int
	if cycles > 63 {
		sat = 65535
	} else {
		sat = 1024 * cycles
		// Ripple near saturation pulls the count under the true level
		// while still clipping, so cut the threshold to 75%.
		sat -= sat / 4
	}
	if int(c) >= sat {
		return 0, 0, ErrSaturated
	}

	// No IR channel on this part; infer IR as the overlap of R+G+B
	// beyond the clear reading, then remove it from each channel.
	sum := int(r) + int(g) + int(b)
	ir := 0
	if sum > int(c) {
		ir = (sum - int(c)) / 2
	}
	r2 := int(r) - ir
	g2 := int(g) - ir
	b2 := int(b) - ir
	if r2 <= 0 {
		return 0, 0, ErrDegenerateReading
	}

	// 60x maps to 60 here, unlike ReadUnitOneShot's table where it maps
	// to 40. Preserved mismatch, see the note there.
	var gainMult int
	switch tcs.Gain {
	case TCS34725_GAIN_1X:
		gainMult = 1
	case TCS34725_GAIN_4X:
		gainMult = 4
	case TCS34725_GAIN_16X:
		gainMult = 16
	case TCS34725_GAIN_60X:
		gainMult = 60
	default:
		gainMult = 1
	}

	// Counts per lux for the current configuration, with the device
	// glass attenuation folded into the 310 divisor.
	cpl := (float64(cycles) * 2.4 * float64(gainMult)) / 310.0
	gl := 0.136*float64(r2) + 1.000*float64(g2) - 0.444*float64(b2)
	lux = gl / cpl

	// Blue to red ratio tracks color temperature once IR is removed.
	ratio := (3810*b2)/r2 + 1391
	if ratio < 0 {
		ratio = 0
	} else if ratio > 65535 {
		ratio = 65535
	}
	return uint16(ratio), lux, nil
}
