// Package types implements the on-disk record layouts for the HAMMER2
// filesystem: the volume header, blockref, blockset, inode, and freemap
// leaf structures, plus the constants that describe them.
package types

// UUID is a 128-bit universally unique identifier stored on the medium in
// host byte order.
type UUID [16]byte

// HammerUUID is the fixed HAMMER2 filesystem type UUID stored in every
// volume header's Fstype field.
var HammerUUID = UUID{
	0x5c, 0xbb, 0x9a, 0xd1, 0x86, 0x2d, 0x11, 0xdc,
	0xa9, 0x4d, 0x01, 0x30, 0x1b, 0xb8, 0xa9, 0xf5,
}

// Tid is a 64-bit monotonic transaction identifier.
type Tid uint64
