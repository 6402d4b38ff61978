package tcs34725

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/exp/io/i2c"
)

// Transport is the register-level bus contract the driver needs.
// Implementations apply the command bit and address the device themselves.
type Transport interface {
	WriteRegister(reg byte, value byte) error
	ReadRegister(reg byte) (byte, error)
	// ReadRegister16 reads two consecutive byte registers, low byte first.
	ReadRegister16(reg byte) (uint16, error)
	// WriteCommand issues a special-function command with no data byte.
	WriteCommand(cmd byte) error
}

// I2CTransport talks to the sensor through a devfs I2C device.
type I2CTransport struct {
	Device *i2c.Device
}

// Open an I2C connection to a TCS34725 at the default address.
func OpenI2C(path string) (*I2CTransport, error) {
	if path == "" {
		// i2c-1 is the default I2C bus for the Raspberry Pi
		path = "/dev/i2c-1"
	}
	device, err := i2c.Open(&i2c.Devfs{Dev: path}, int(TCS34725_ADDR))
	if err != nil {
		return nil, fmt.Errorf("Failed to open: %w", err)
	}
	return &I2CTransport{Device: device}, nil
}

func (t *I2CTransport) WriteRegister(reg byte, value byte) error {
	return t.Device.WriteReg(TCS34725_COMMAND_BIT|reg, []byte{value})
}

func (t *I2CTransport) ReadRegister(reg byte) (byte, error) {
	buf := make([]byte, 1)
	if err := t.Device.ReadReg(TCS34725_COMMAND_BIT|reg, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (t *I2CTransport) ReadRegister16(reg byte) (uint16, error) {
	buf := make([]byte, 2)
	if err := t.Device.ReadReg(TCS34725_COMMAND_BIT|reg, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func (t *I2CTransport) WriteCommand(cmd byte) error {
	return t.Device.Write([]byte{TCS34725_COMMAND_BIT | cmd})
}
