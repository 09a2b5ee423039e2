// Package checksum provides the 8-bit CRC used to validate settings slots.
//
// The parameters are CRC-8/MAXIM: reflected polynomial 0x31, initial value
// 0, no final XOR. It detects every single-bit and every single-byte change
// in the covered span, which the settings store relies on when it
// invalidates a slot by clearing one bit.
package checksum

import "github.com/sigurn/crc8"

var table = crc8.MakeTable(crc8.CRC8_MAXIM)

// CRC8 computes the checksum of data. CRC8(nil) is 0.
func CRC8(data []byte) byte {
	return crc8.Checksum(data, table)
}
