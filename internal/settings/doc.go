// Package settings persists the device configuration record in a flash
// region with wear levelling.
//
// The region is split into fixed slots of SlotSize bytes. Each slot holds an
// encoded Record followed by a checksum byte. Save appends the record to the
// next slot and then invalidates the previous one; invalidation only ever
// clears bits (the wear-level mark, and one checksum or inert string byte),
// so it is legal on NOR flash without an erase. The region is erased
// implicitly when the cursor wraps and a slot is overwritten.
//
// Example:
//
//	sector, _ := flash.OpenFile("settings.img", flash.SectorSize)
//	eeprom, _ := flash.NewEEPROM(sector)
//	store := settings.New(eeprom)
//
//	rec, cursor, _ := store.Load(0)
//	_ = rec.Apply("login", "operator")
//	_ = store.Save(rec, &cursor)
package settings
