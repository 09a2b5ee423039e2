// Package flash models the storage medium behind the settings store.
//
// NOR flash has two physical properties the rest of the system depends on:
//
//   - Programming can only clear bits (1 to 0). Setting a bit back to 1
//     requires erasing the whole sector, which is slow and wears the cell.
//   - An erased sector reads as all 0xFF.
//
// # Layers
//
// A Sector is the raw medium. Memory is an in-memory sector for tests and
// File keeps a sector image on disk for the host daemon. Both reject a
// Program call that would set a bit with ErrBitSet, so the "only clear
// bits" discipline is enforced rather than assumed.
//
// EEPROM sits on top of a Sector and emulates byte-addressable storage the
// way small microcontroller EEPROM libraries do: writes are staged in a RAM
// shadow and Commit programs them in place when possible, or erases the
// sector and reprograms the shadow when a staged byte needs a bit set.
// ClearBits bypasses the shadow and programs straight through; it never
// erases, which is what slot invalidation needs.
//
//	sector, err := flash.OpenFile("/var/lib/relayd/settings.img", flash.SectorSize)
//	if err != nil {
//	    return err
//	}
//	medium, err := flash.NewEEPROM(sector)
package flash
