package tcs34725

/*
 * tcs34725 - Package for interacting with TCS34725 RGB color sensors.
 *
 * Ref:
 * https://github.com/adafruit/Adafruit_TCS34725
 * https://ams.com/documents/20143/36005/ColorSensors_AN000166_1-00.pdf
 *
 */

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var l *logrus.Logger

func init() {
	l = logrus.New()
	// Setup the logger, so it can be parsed by datadog
	l.Formatter = &logrus.JSONFormatter{}
	l.SetOutput(os.Stdout)
	// Set the log level
	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))
	switch logLevel {
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "info":
		l.SetLevel(logrus.InfoLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}
}

// ErrNotFound is returned when the device ID read back during
// initialization does not match a known TCS3472x part.
var ErrNotFound = errors.New("no TCS34725 found on the bus")

// Channels holds one per-channel value for red, green and blue.
type Channels struct {
	R float64
	G float64
	B float64
}

// Datasheet-typical irradiance responsivity, counts per µW/cm² at 2.4ms/1x.
var (
	defaultSensitivity = Channels{R: 22.7, G: 17.7, B: 19.8}
	defaultReference   = Channels{R: 1.0, G: 1.0, B: 1.0}
)

type TCS34725 struct {
	Initialized     bool
	Enabled         bool
	IntegrationTime byte
	Gain            byte
	Transport       Transport
	// Delay blocks the calling goroutine; replaceable for tests.
	Delay func(time.Duration)

	sensitivity Channels
	reference   Channels
	*sync.Mutex
}

// New builds a driver around an existing transport. The requested
// integration time and gain are stored but not applied to the device
// until the first call that needs the hardware.
func New(transport Transport, integrationTime byte, gain byte) *TCS34725 {
	return &TCS34725{
		Transport:       transport,
		IntegrationTime: integrationTime,
		Gain:            gain,
		Delay:           time.Sleep,
		Mutex:           &sync.Mutex{},
	}
}

// Connect to a TCS34725 via I2C protocol & set gain/timing
func NewTCS34725(integrationTime byte, gain byte, path string) (*TCS34725, error) {
	transport, err := OpenI2C(path)
	if err != nil {
		return nil, err
	}
	tcs := New(transport, integrationTime, gain)
	if err := tcs.Init(); err != nil {
		return nil, err
	}

	// The device stays in low power until a reading is requested.
	if err := tcs.Disable(); err != nil {
		return nil, err
	}
	return tcs, nil
}

// Init verifies the device identity and applies the stored configuration.
// On an identity mismatch the instance is left untouched and stays
// uninitialized, so the caller can retry.
func (tcs *TCS34725) Init() error {
	id, err := tcs.Transport.ReadRegister(TCS34725_REGISTER_ID)
	if err != nil {
		return fmt.Errorf("Failed to read id: %w", err)
	}
	if id != TCS34725_ID_TCS34725 && id != TCS34725_ID_TCS34727 {
		return fmt.Errorf("%w: id 0x%02X", ErrNotFound, id)
	}
	tcs.Initialized = true

	if err := tcs.SetIntegrationTime(tcs.IntegrationTime); err != nil {
		return err
	}
	if err := tcs.SetGain(tcs.Gain); err != nil {
		return err
	}
	tcs.sensitivity = defaultSensitivity
	tcs.reference = defaultReference
	return nil
}

func (tcs *TCS34725) ensureInit() error {
	if tcs.Initialized {
		return nil
	}
	return tcs.Init()
}

// Enable powers the device on and waits until the first integration
// cycle has completed. The 3ms pause after PON covers oscillator
// bring-up; the second pause covers one full integration period, since
// setting AEN starts an integration whose data is not valid earlier.
func (tcs *TCS34725) Enable() error {
	tcs.Lock()
	defer tcs.Unlock()

	if tcs.Enabled {
		return nil
	}
	if err := tcs.Transport.WriteRegister(TCS34725_REGISTER_ENABLE, TCS34725_ENABLE_PON); err != nil {
		return err
	}
	tcs.Delay(3 * time.Millisecond)
	if err := tcs.Transport.WriteRegister(TCS34725_REGISTER_ENABLE, TCS34725_ENABLE_PON|TCS34725_ENABLE_AEN); err != nil {
		return err
	}
	tcs.Delay(tcs.settlingDelay())
	tcs.Enabled = true
	return nil
}

// Disable puts the device into low power sleep, preserving the other
// ENABLE bits (interrupt and wait configuration) and the channel data.
func (tcs *TCS34725) Disable() error {
	tcs.Lock()
	defer tcs.Unlock()

	reg, err := tcs.Transport.ReadRegister(TCS34725_REGISTER_ENABLE)
	if err != nil {
		return err
	}
	if err := tcs.Transport.WriteRegister(TCS34725_REGISTER_ENABLE, reg&^(TCS34725_ENABLE_PON|TCS34725_ENABLE_AEN)); err != nil {
		return err
	}
	tcs.Enabled = false
	return nil
}

// Set the integration timing for the sensor
func (tcs *TCS34725) SetIntegrationTime(integrationTime byte) error {
	if err := tcs.ensureInit(); err != nil {
		return err
	}
	if err := tcs.Transport.WriteRegister(TCS34725_REGISTER_ATIME, integrationTime); err != nil {
		return err
	}
	tcs.IntegrationTime = integrationTime
	return nil
}

// Set the gain for the sensor
func (tcs *TCS34725) SetGain(gain byte) error {
	if err := tcs.ensureInit(); err != nil {
		return err
	}
	if err := tcs.Transport.WriteRegister(TCS34725_REGISTER_CONTROL, gain); err != nil {
		return err
	}
	tcs.Gain = gain
	return nil
}

// SetCalibration replaces the per-channel sensitivity and reference
// constants used by ReadUnitOneShot. In-memory only, no bus traffic.
func (tcs *TCS34725) SetCalibration(sensitivity, reference Channels) {
	tcs.sensitivity = sensitivity
	tcs.reference = reference
}

// ReadRaw reads the raw red, green, blue and clear channel values.
// The device must be enabled; the trailing delay guards the next read
// against landing inside an unfinished integration cycle.
func (tcs *TCS34725) ReadRaw() (r, g, b, c uint16, err error) {
	if err = tcs.ensureInit(); err != nil {
		return 0, 0, 0, 0, err
	}

	c, err = tcs.Transport.ReadRegister16(TCS34725_REGISTER_CDATAL)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	r, err = tcs.Transport.ReadRegister16(TCS34725_REGISTER_RDATAL)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	g, err = tcs.Transport.ReadRegister16(TCS34725_REGISTER_GDATAL)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	b, err = tcs.Transport.ReadRegister16(TCS34725_REGISTER_BDATAL)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	l.Debugf("Raw channels: r=%d g=%d b=%d c=%d", r, g, b, c)

	tcs.Delay(tcs.settlingDelay())
	return r, g, b, c, nil
}

// ReadRawOneShot wakes the device, takes one measurement and puts it
// back to sleep. Each call pays the full bring-up plus integration
// delay; callers needing a high sample rate should keep the device
// enabled and call ReadRaw in a loop instead.
func (tcs *TCS34725) ReadRawOneShot() (r, g, b, c uint16, err error) {
	if err = tcs.ensureInit(); err != nil {
		return 0, 0, 0, 0, err
	}
	if err = tcs.Enable(); err != nil {
		return 0, 0, 0, 0, err
	}
	r, g, b, c, err = tcs.ReadRaw()
	if err != nil {
		return 0, 0, 0, 0, err
	}
	if err = tcs.Disable(); err != nil {
		return 0, 0, 0, 0, err
	}
	return r, g, b, c, nil
}

// ReadUnitOneShot takes a one-shot measurement and scales each channel
// to an approximate irradiance (µW/cm² equivalent) using the stored
// calibration constants. The clear value is the sum of the three
// channels. Without a caller-supplied calibration this is a rough
// estimate, not a photometrically accurate one.
func (tcs *TCS34725) ReadUnitOneShot() (r, g, b, c float64, err error) {
	rawR, rawG, rawB, _, err := tcs.ReadRawOneShot()
	if err != nil {
		return 0, 0, 0, 0, err
	}

	atimeMult := integrationCycles(tcs.IntegrationTime)

	// 60x maps to 40 here, unlike the DN40 table where it maps to 60.
	// Both tables come from the reference implementation; the mismatch
	// is preserved until confirmed either way against real hardware.
	var gainMult float64
	switch tcs.Gain {
	case TCS34725_GAIN_1X:
		gainMult = 1
	case TCS34725_GAIN_4X:
		gainMult = 4
	case TCS34725_GAIN_16X:
		gainMult = 16
	case TCS34725_GAIN_60X:
		gainMult = 40
	default:
		gainMult = 1
	}

	r = float64(rawR) / tcs.sensitivity.R * tcs.reference.R * atimeMult * gainMult
	g = float64(rawG) / tcs.sensitivity.G * tcs.reference.G * atimeMult * gainMult
	b = float64(rawB) / tcs.sensitivity.B * tcs.reference.B * atimeMult * gainMult
	c = r + g + b
	return r, g, b, c, nil
}

// RGB reads the sensor and normalizes each channel against the clear
// reading, scaled to 0-255. All-black on a zero clear channel.
func (tcs *TCS34725) RGB() (r, g, b float64, err error) {
	rawR, rawG, rawB, rawC, err := tcs.ReadRaw()
	if err != nil {
		return 0, 0, 0, err
	}
	if rawC == 0 {
		return 0, 0, 0, nil
	}
	sum := float64(rawC)
	return float64(rawR) / sum * 255.0, float64(rawG) / sum * 255.0, float64(rawB) / sum * 255.0, nil
}

// SetInterrupt toggles the RGBC interrupt enable bit, preserving the
// rest of the ENABLE register.
func (tcs *TCS34725) SetInterrupt(on bool) error {
	reg, err := tcs.Transport.ReadRegister(TCS34725_REGISTER_ENABLE)
	if err != nil {
		return err
	}
	if on {
		reg |= TCS34725_ENABLE_AIEN
	} else {
		reg &^= TCS34725_ENABLE_AIEN
	}
	return tcs.Transport.WriteRegister(TCS34725_REGISTER_ENABLE, reg)
}

// ClearInterrupt clears a pending RGBC interrupt flag.
func (tcs *TCS34725) ClearInterrupt() error {
	return tcs.Transport.WriteCommand(TCS34725_COMMAND_CLEAR_INT)
}

// SetIntLimits programs the clear-channel interrupt thresholds.
func (tcs *TCS34725) SetIntLimits(low, high uint16) error {
	if err := tcs.Transport.WriteRegister(TCS34725_REGISTER_AILTL, byte(low&0xFF)); err != nil {
		return err
	}
	if err := tcs.Transport.WriteRegister(TCS34725_REGISTER_AILTH, byte(low>>8)); err != nil {
		return err
	}
	if err := tcs.Transport.WriteRegister(TCS34725_REGISTER_AIHTL, byte(high&0xFF)); err != nil {
		return err
	}
	return tcs.Transport.WriteRegister(TCS34725_REGISTER_AIHTH, byte(high>>8))
}

// SetOptimalConfig sweeps gain and integration time until a sample
// comes back unsaturated, starting from the most sensitive settings.
// The device must be enabled before calling.
func (tcs *TCS34725) SetOptimalConfig() error {
	gainOptions := []byte{TCS34725_GAIN_60X, TCS34725_GAIN_16X, TCS34725_GAIN_4X, TCS34725_GAIN_1X}
	integrationOptions := []byte{
		TCS34725_INTEGRATIONTIME_700MS, TCS34725_INTEGRATIONTIME_154MS, TCS34725_INTEGRATIONTIME_101MS,
		TCS34725_INTEGRATIONTIME_50MS, TCS34725_INTEGRATIONTIME_24MS, TCS34725_INTEGRATIONTIME_2_4MS,
	}
	for _, gain := range gainOptions {
		if err := tcs.SetGain(gain); err != nil {
			return err
		}
		for _, integrationTime := range integrationOptions {
			if err := tcs.SetIntegrationTime(integrationTime); err != nil {
				return err
			}
			l.Debugf("Attempting - Gain: %v, Integration Time: %v", GainToString(gain), IntegrationTimeToString(integrationTime))
			r, g, b, c, err := tcs.ReadRaw()
			if err != nil {
				continue
			}
			if _, _, err := tcs.CalculateColorTemperatureDN40(r, g, b, c); err != nil {
				continue
			}
			l.Debugf("Set - Gain: %v, Integration Time: %v", GainToString(gain), IntegrationTimeToString(integrationTime))
			return nil
		}
	}
	// Use default options
	if err := tcs.SetGain(TCS34725_GAIN_1X); err != nil {
		return err
	}
	if err := tcs.SetIntegrationTime(TCS34725_INTEGRATIONTIME_2_4MS); err != nil {
		return err
	}
	return errors.New("All configurations are saturated")
}

// settlingDelay maps the configured integration time to the wait that
// makes a subsequent reading valid. 2.4ms rounds up to 3ms; every other
// setting waits its own length.
func (tcs *TCS34725) settlingDelay() time.Duration {
	switch tcs.IntegrationTime {
	case TCS34725_INTEGRATIONTIME_2_4MS:
		return 3 * time.Millisecond
	case TCS34725_INTEGRATIONTIME_24MS:
		return 24 * time.Millisecond
	case TCS34725_INTEGRATIONTIME_50MS:
		return 50 * time.Millisecond
	case TCS34725_INTEGRATIONTIME_101MS:
		return 101 * time.Millisecond
	case TCS34725_INTEGRATIONTIME_154MS:
		return 154 * time.Millisecond
	case TCS34725_INTEGRATIONTIME_700MS:
		return 700 * time.Millisecond
	default:
		return 700 * time.Millisecond
	}
}

// integrationCycles returns the number of 2.4ms cycles the ATIME code
// selects, which is also the integration period divided by 2.4ms.
func integrationCycles(code byte) float64 {
	return float64(256 - int(code))
}
