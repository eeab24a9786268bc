package types

import "encoding/binary"

// BlockRefT is the 64-byte unit of reference in the HAMMER2 topology. It
// names the key range it is responsible for, the media it points at, and
// the check-code that media must satisfy.
type BlockRefT struct {
	// Type is one of the BrefType* constants.
	Type uint8
	// Methods packs the check-code algorithm in the high nibble and the
	// compression algorithm in the low nibble.
	Methods uint8
	// Copyid names the replication target this blockref belongs to.
	Copyid uint8
	// Keybits is the number of low bits of Key that vary within this
	// blockref's range: [Key, Key+(1<<Keybits)).
	Keybits uint8
	// Vradix is the radix of the vnode-visible size of the referenced
	// data, independent of its physical allocation size.
	Vradix uint8
	// Flags carries per-blockref bits (e.g. the PFSROOT marker newfs sets
	// on a PFS root's blockref).
	Flags uint8
	_     [2]byte // reserved, naturally aligns Key to an 8-byte boundary

	// Key is the lookup key this blockref answers for.
	Key uint64
	// MirrorTid and ModifyTid are transaction identifiers.
	MirrorTid Tid
	ModifyTid Tid
	// DataOff packs the allocation radix in its low 6 bits and the
	// 64-byte-aligned physical offset in the remaining bits.
	DataOff uint64
	// Check is the union interpreted according to the high nibble of
	// Methods; see Iscsi32/Xxhash64/Sha192/FreemapCheck accessors.
	Check [24]byte
}

// CheckAlgo returns the check-code algorithm named by Methods.
func (b *BlockRefT) CheckAlgo() uint8 { return b.Methods >> 4 }

// CompAlgo returns the compression algorithm named by Methods.
func (b *BlockRefT) CompAlgo() uint8 { return b.Methods & 0x0F }

// SetMethods packs a check algorithm and compression algorithm into Methods.
func (b *BlockRefT) SetMethods(check, comp uint8) {
	b.Methods = (check << 4) | (comp & 0x0F)
}

// BytesOf returns the physical size in bytes of the data this blockref
// refers to, or 0 if it refers to no data at all.
func (b *BlockRefT) BytesOf() uint64 {
	radix := b.DataOff & 0x3F
	if radix == 0 {
		return 0
	}
	return 1 << radix
}

// IoOffset returns the 64-byte-aligned physical byte offset this blockref's
// data lives at.
func (b *BlockRefT) IoOffset() uint64 {
	return b.DataOff &^ 0x3F
}

// SetDataOff packs a physical offset (which must already be 64-byte
// aligned) and an allocation radix into DataOff.
func (b *BlockRefT) SetDataOff(offset uint64, radix uint8) {
	b.DataOff = (offset &^ 0x3F) | uint64(radix&0x3F)
}

// Iscsi32Value returns the stored ISCSI-CRC32 check value.
func (b *BlockRefT) Iscsi32Value() uint32 {
	return binary.LittleEndian.Uint32(b.Check[0:4])
}

// SetIscsi32Value stores an ISCSI-CRC32 check value.
func (b *BlockRefT) SetIscsi32Value(v uint32) {
	binary.LittleEndian.PutUint32(b.Check[0:4], v)
}

// Xxhash64Value returns the stored XXH64 check value.
func (b *BlockRefT) Xxhash64Value() uint64 {
	return binary.LittleEndian.Uint64(b.Check[0:8])
}

// SetXxhash64Value stores an XXH64 check value.
func (b *BlockRefT) SetXxhash64Value(v uint64) {
	binary.LittleEndian.PutUint64(b.Check[0:8], v)
}

// Sha192Value returns the stored SHA-192 digest.
func (b *BlockRefT) Sha192Value() [24]byte {
	var out [24]byte
	copy(out[:], b.Check[:])
	return out
}

// SetSha192Value stores a SHA-192 digest.
func (b *BlockRefT) SetSha192Value(digest [24]byte) {
	copy(b.Check[:], digest[:])
}

// FreemapCheck is the freemap-hint interpretation of the check union.
type FreemapCheck struct {
	Icrc32  uint32
	Bigmask uint32
	Avail   uint64
}

// FreemapCheckValue returns the stored freemap hint.
func (b *BlockRefT) FreemapCheckValue() FreemapCheck {
	return FreemapCheck{
		Icrc32:  binary.LittleEndian.Uint32(b.Check[0:4]),
		Bigmask: binary.LittleEndian.Uint32(b.Check[4:8]),
		Avail:   binary.LittleEndian.Uint64(b.Check[8:16]),
	}
}

// SetFreemapCheckValue stores a freemap hint.
func (b *BlockRefT) SetFreemapCheckValue(v FreemapCheck) {
	binary.LittleEndian.PutUint32(b.Check[0:4], v.Icrc32)
	binary.LittleEndian.PutUint32(b.Check[4:8], v.Bigmask)
	binary.LittleEndian.PutUint64(b.Check[8:16], v.Avail)
}

// IsEmpty reports whether this blockref carries no data and no children.
func (b *BlockRefT) IsEmpty() bool {
	return b.Type == BrefTypeEmpty
}

// EncodeBlockRef serializes a blockref to its 64-byte on-disk form.
func EncodeBlockRef(b *BlockRefT) []byte {
	buf := make([]byte, BlockRefBytes)
	buf[0] = b.Type
	buf[1] = b.Methods
	buf[2] = b.Copyid
	buf[3] = b.Keybits
	buf[4] = b.Vradix
	buf[5] = b.Flags
	binary.LittleEndian.PutUint64(buf[8:16], b.Key)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(b.MirrorTid))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(b.ModifyTid))
	binary.LittleEndian.PutUint64(buf[32:40], b.DataOff)
	copy(buf[40:64], b.Check[:])
	return buf
}

// DecodeBlockRef parses a 64-byte on-disk blockref.
func DecodeBlockRef(data []byte) (*BlockRefT, error) {
	if len(data) < BlockRefBytes {
		return nil, ErrShortBuffer("blockref", BlockRefBytes, len(data))
	}
	b := &BlockRefT{
		Type:    data[0],
		Methods: data[1],
		Copyid:  data[2],
		Keybits: data[3],
		Vradix:  data[4],
		Flags:   data[5],
	}
	b.Key = binary.LittleEndian.Uint64(data[8:16])
	b.MirrorTid = Tid(binary.LittleEndian.Uint64(data[16:24]))
	b.ModifyTid = Tid(binary.LittleEndian.Uint64(data[24:32]))
	b.DataOff = binary.LittleEndian.Uint64(data[32:40])
	copy(b.Check[:], data[40:64])
	return b, nil
}

// DecodeBlockSet parses a blockset (SetCount consecutive blockrefs).
func DecodeBlockSet(data []byte) ([SetCount]BlockRefT, error) {
	var set [SetCount]BlockRefT
	if len(data) < SetCount*BlockRefBytes {
		return set, ErrShortBuffer("blockset", SetCount*BlockRefBytes, len(data))
	}
	for i := 0; i < SetCount; i++ {
		b, err := DecodeBlockRef(data[i*BlockRefBytes : (i+1)*BlockRefBytes])
		if err != nil {
			return set, err
		}
		set[i] = *b
	}
	return set, nil
}

// DecodeBlockRefArray parses a variable-length array of consecutive
// blockrefs, as found in an INDIRECT or FREEMAP_NODE block's raw media.
func DecodeBlockRefArray(data []byte) ([]BlockRefT, error) {
	n := len(data) / BlockRefBytes
	out := make([]BlockRefT, n)
	for i := 0; i < n; i++ {
		b, err := DecodeBlockRef(data[i*BlockRefBytes : (i+1)*BlockRefBytes])
		if err != nil {
			return nil, err
		}
		out[i] = *b
	}
	return out, nil
}

// EncodeBlockSet serializes a blockset.
func EncodeBlockSet(set [SetCount]BlockRefT) []byte {
	buf := make([]byte, 0, SetCount*BlockRefBytes)
	for i := range set {
		buf = append(buf, EncodeBlockRef(&set[i])...)
	}
	return buf
}

// EncodeBlockRefArray serializes a variable-length blockref array, the
// inverse of DecodeBlockRefArray.
func EncodeBlockRefArray(arr []BlockRefT) []byte {
	buf := make([]byte, 0, len(arr)*BlockRefBytes)
	for i := range arr {
		buf = append(buf, EncodeBlockRef(&arr[i])...)
	}
	return buf
}
