package checksum

// visibleBit is set in a directory-name hash's top bit to mark the entry
// visible to directory scans. newfs sets it on every root inode it creates.
const visibleBit uint64 = 1 << 63

// Dirhash computes the directory-name hash newfs stores in a root inode's
// NameKey field. It is an ISCSI-CRC32 of the name folded into the low 63
// bits of a 64-bit key, with the visible bit set.
func Dirhash(name string) uint64 {
	crc := Iscsi32([]byte(name))
	key := uint64(crc) &^ (1 << 63)
	return key | visibleBit
}
