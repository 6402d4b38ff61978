package tcs34725

import (
	"errors"
	"math"
	"testing"
)

func TestCalculateLux(t *testing.T) {
	tcs, _ := newTestDevice(TCS34725_ID_TCS34725, TCS34725_INTEGRATIONTIME_101MS, TCS34725_GAIN_1X)

	if lux := tcs.CalculateLux(0, 0, 0); lux != 0 {
		t.Fatalf("lux(0,0,0) = %d", lux)
	}

	// Linear within integer truncation.
	base := tcs.CalculateLux(100, 200, 50)
	doubled := tcs.CalculateLux(200, 400, 100)
	if diff := doubled - 2*base; diff < -1 || diff > 1 {
		t.Fatalf("lux not linear: 2*%d vs %d", base, doubled)
	}

	// IR-heavy light pushes the weighting negative; the signed result
	// must not wrap.
	if lux := tcs.CalculateLux(1000, 0, 1000); lux >= 0 {
		t.Fatalf("lux(1000,0,1000) = %d, want negative", lux)
	}
}

func TestCalculateColorTemperature(t *testing.T) {
	tcs, _ := newTestDevice(TCS34725_ID_TCS34725, TCS34725_INTEGRATIONTIME_101MS, TCS34725_GAIN_1X)

	cct, err := tcs.CalculateColorTemperature(50, 100, 50)
	if err != nil {
		t.Fatalf("cct error: %v", err)
	}
	// McCamy lands a green-leaning neutral source in the mid-4000s.
	if cct < 4000 || cct > 5000 {
		t.Fatalf("cct = %dK, want mid-4000s", cct)
	}
}

func TestCalculateColorTemperatureDegenerate(t *testing.T) {
	tcs, _ := newTestDevice(TCS34725_ID_TCS34725, TCS34725_INTEGRATIONTIME_101MS, TCS34725_GAIN_1X)

	if _, err := tcs.CalculateColorTemperature(0, 0, 0); !errors.Is(err, ErrDegenerateReading) {
		t.Fatalf("cct(0,0,0) error = %v, want ErrDegenerateReading", err)
	}
}

func TestDN40KnownValue(t *testing.T) {
	tcs, _ := newTestDevice(TCS34725_ID_TCS34725, TCS34725_INTEGRATIONTIME_101MS, TCS34725_GAIN_16X)

	// r+g+b=250, c=200: inferred IR is 25, compensated channels are
	// r2=75 g2=75 b2=25. cct = 3810*25/75 + 1391 = 2661.
	cct, lux, err := tcs.CalculateColorTemperatureDN40(100, 100, 50, 200)
	if err != nil {
		t.Fatalf("dn40 error: %v", err)
	}
	if cct != 2661 {
		t.Fatalf("dn40 cct = %d, want 2661", cct)
	}
	// cpl = 43 cycles * 2.4 * 16 / 310; gl = 0.136*75 + 75 - 0.444*25.
	wantLux := (0.136*75 + 1.000*75 - 0.444*25) / ((43 * 2.4 * 16) / 310.0)
	if math.Abs(lux-wantLux) > 1e-9 {
		t.Fatalf("dn40 lux = %v, want %v", lux, wantLux)
	}
}

func TestDN40GainTable(t *testing.T) {
	// The DN40 path maps 60x to 60, unlike the unit-conversion path
	// which maps it to 40. Pin the ratio so neither table drifts.
	tcs, _ := newTestDevice(TCS34725_ID_TCS34725, TCS34725_INTEGRATIONTIME_101MS, TCS34725_GAIN_1X)
	_, lux1, err := tcs.CalculateColorTemperatureDN40(100, 100, 50, 200)
	if err != nil {
		t.Fatalf("dn40 at 1x: %v", err)
	}

	tcs.Gain = TCS34725_GAIN_60X
	_, lux60, err := tcs.CalculateColorTemperatureDN40(100, 100, 50, 200)
	if err != nil {
		t.Fatalf("dn40 at 60x: %v", err)
	}
	if math.Abs(lux1/lux60-60.0) > 1e-9 {
		t.Fatalf("dn40 60x multiplier = %v, want 60", lux1/lux60)
	}
}

func TestDN40SaturationBoundary(t *testing.T) {
	cases := []struct {
		integrationTime byte
		sat             uint16
	}{
		// Analog regime: 1024 counts per cycle, cut to 75% for ripple.
		{TCS34725_INTEGRATIONTIME_2_4MS, 768},
		{TCS34725_INTEGRATIONTIME_24MS, 7680},
		{TCS34725_INTEGRATIONTIME_50MS, 16128},
		{TCS34725_INTEGRATIONTIME_101MS, 33024},
		// Digital regime: the 16-bit ceiling is reached first.
		{TCS34725_INTEGRATIONTIME_154MS, 65535},
		{TCS34725_INTEGRATIONTIME_700MS, 65535},
	}
	for _, tc := range cases {
		t.Run(IntegrationTimeToString(tc.integrationTime), func(t *testing.T) {
			tcs, _ := newTestDevice(TCS34725_ID_TCS34725, tc.integrationTime, TCS34725_GAIN_1X)

			// Just below the threshold: a valid reading.
			cct, _, err := tcs.CalculateColorTemperatureDN40(100, 100, 50, tc.sat-1)
			if err != nil {
				t.Fatalf("dn40 at sat-1: %v", err)
			}
			if cct == 0 {
				t.Fatal("dn40 at sat-1 returned the saturation sentinel")
			}

			// At the threshold: rejected with the zero sentinel.
			cct, _, err = tcs.CalculateColorTemperatureDN40(100, 100, 50, tc.sat)
			if !errors.Is(err, ErrSaturated) {
				t.Fatalf("dn40 at sat error = %v, want ErrSaturated", err)
			}
			if cct != 0 {
				t.Fatalf("dn40 at sat cct = %d, want 0", cct)
			}

			if tc.sat < 65535 {
				if _, _, err := tcs.CalculateColorTemperatureDN40(100, 100, 50, tc.sat+1); !errors.Is(err, ErrSaturated) {
					t.Fatalf("dn40 at sat+1 error = %v, want ErrSaturated", err)
				}
			}
		})
	}
}

func TestDN40Degenerate(t *testing.T) {
	tcs, _ := newTestDevice(TCS34725_ID_TCS34725, TCS34725_INTEGRATIONTIME_101MS, TCS34725_GAIN_1X)

	if _, _, err := tcs.CalculateColorTemperatureDN40(0, 0, 0, 0); !errors.Is(err, ErrDegenerateReading) {
		t.Fatalf("dn40 with zero clear error = %v, want ErrDegenerateReading", err)
	}

	// IR inference can wipe out the red channel entirely; the blue/red
	// ratio is undefined there and must come back as a domain error.
	if _, _, err := tcs.CalculateColorTemperatureDN40(10, 500, 500, 100); !errors.Is(err, ErrDegenerateReading) {
		t.Fatalf("dn40 with zero compensated red error = %v, want ErrDegenerateReading", err)
	}
}
