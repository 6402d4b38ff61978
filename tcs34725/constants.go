package tcs34725

const (
	TCS34725_ADDR        uint16 = 0x29 ///< Default I2C address
	TCS34725_COMMAND_BIT byte   = 0x80 ///< Command bit, must prefix every register access

	TCS34725_ENABLE_PON  byte = 0x01 ///< Power on: activates the internal oscillator
	TCS34725_ENABLE_AEN  byte = 0x02 ///< RGBC enable: starts free-running integration cycles
	TCS34725_ENABLE_WEN  byte = 0x08 ///< Wait enable: activates the wait timer
	TCS34725_ENABLE_AIEN byte = 0x10 ///< RGBC interrupt enable

	TCS34725_ID_TCS34725 byte = 0x44 ///< Device ID of the TCS34721/TCS34725
	TCS34725_ID_TCS34727 byte = 0x10 ///< Device ID of the TCS34723/TCS34727
)

// TCS34725 Register map
const (
	TCS34725_REGISTER_ENABLE  byte = 0x00 // Enable register
	TCS34725_REGISTER_ATIME   byte = 0x01 // RGBC integration time register
	TCS34725_REGISTER_WTIME   byte = 0x03 // Wait time register
	TCS34725_REGISTER_AILTL   byte = 0x04 // Clear interrupt low threshold, low byte
	TCS34725_REGISTER_AILTH   byte = 0x05 // Clear interrupt low threshold, high byte
	TCS34725_REGISTER_AIHTL   byte = 0x06 // Clear interrupt high threshold, low byte
	TCS34725_REGISTER_AIHTH   byte = 0x07 // Clear interrupt high threshold, high byte
	TCS34725_REGISTER_PERS    byte = 0x0C // Interrupt persistence filter
	TCS34725_REGISTER_CONFIG  byte = 0x0D // Configuration register
	TCS34725_REGISTER_CONTROL byte = 0x0F // Gain control register
	TCS34725_REGISTER_ID      byte = 0x12 // Device Identification
	TCS34725_REGISTER_STATUS  byte = 0x13 // Internal status
	TCS34725_REGISTER_CDATAL  byte = 0x14 // Clear channel data, low byte
	TCS34725_REGISTER_RDATAL  byte = 0x16 // Red channel data, low byte
	TCS34725_REGISTER_GDATAL  byte = 0x18 // Green channel data, low byte
	TCS34725_REGISTER_BDATAL  byte = 0x1A // Blue channel data, low byte

	TCS34725_COMMAND_CLEAR_INT byte = 0x66 // Special function: clear RGBC interrupt flag
)

// Constants for adjusting the sensor integration timing.
// The ATIME code counts down from 0x100, each cycle is 2.4ms.
const (
	TCS34725_INTEGRATIONTIME_2_4MS byte = 0xFF // 2.4ms, 1 cycle, max count 1024
	TCS34725_INTEGRATIONTIME_24MS  byte = 0xF6 // 24ms, 10 cycles, max count 10240
	TCS34725_INTEGRATIONTIME_50MS  byte = 0xEB // 50ms, 21 cycles, max count 21504
	TCS34725_INTEGRATIONTIME_101MS byte = 0xD5 // 101ms, 43 cycles, max count 44032
	TCS34725_INTEGRATIONTIME_154MS byte = 0xC0 // 154ms, 64 cycles, max count 65535
	TCS34725_INTEGRATIONTIME_700MS byte = 0x00 // 700ms, 256 cycles, max count 65535
)

// Constants for adjusting the sensor gain
const (
	TCS34725_GAIN_1X  byte = 0x00 /// no gain
	TCS34725_GAIN_4X  byte = 0x01 /// 4x gain
	TCS34725_GAIN_16X byte = 0x02 /// 16x gain
	TCS34725_GAIN_60X byte = 0x03 /// 60x gain
)

func IntegrationTimeToString(value byte) string {
	switch value {
	case TCS34725_INTEGRATIONTIME_2_4MS:
		return "2.4ms"
	case TCS34725_INTEGRATIONTIME_24MS:
		return "24ms"
	case TCS34725_INTEGRATIONTIME_50MS:
		return "50ms"
	case TCS34725_INTEGRATIONTIME_101MS:
		return "101ms"
	case TCS34725_INTEGRATIONTIME_154MS:
		return "154ms"
	case TCS34725_INTEGRATIONTIME_700MS:
		return "700ms"
	default:
		return "Unknown"
	}
}

func GainToString(value byte) string {
	switch value {
	case TCS34725_GAIN_1X:
		return "1x gain"
	case TCS34725_GAIN_4X:
		return "4x gain"
	case TCS34725_GAIN_16X:
		return "16x gain"
	case TCS34725_GAIN_60X:
		return "60x gain"
	default:
		return "Unknown"
	}
}
