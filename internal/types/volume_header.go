package types

import "encoding/binary"

// Byte offsets and ranges inside the 64 KiB volume header. The three CRCs
// cover disjoint (or nested-but-self-excluding) ranges:
//
//   - VolCrcSect0 covers [0, VolCrcSect0Len) with its own 4-byte slot
//     (VolCrcSect0Off) zeroed during computation -- that slot sits inside
//     the covered range, which is what "the whole first sector minus its
//     own 4-byte slot" means.
//   - VolCrcSect1 covers [VolCrcSect1Beg, VolCrcSect1End) in full; its own
//     slot (VolCrcSect1Off) sits earlier in the header, outside that range,
//     so no zeroing is needed.
//   - VolCrcWhole covers [0, VolCrcWholeLen); its own slot (VolCrcWholeOff)
//     is the header's last 4 bytes, already outside that range.
//
// Because VolCrcSect1Off (504) sits inside VolCrcSect0's covered range
// [0,508), SECT1 must be computed and stored before SECT0 -- matching the
// order spec.md documents (SECT1, then SECT0, then the whole-header CRC).
const (
	VolMagicOff   = 0
	VolBootBegOff = 8
	VolBootEndOff = 16
	VolAuxBegOff  = 24
	VolAuxEndOff  = 32
	VolVoluSizeOff = 40
	VolVersionOff = 48
	VolFsidOff    = 56
	VolFstypeOff  = 72
	VolAllocSizeOff = 88
	VolAllocFreeOff = 96
	VolAllocBegOff  = 104
	VolMirrorTidOff  = 112
	VolFreemapTidOff = 120
	VolInodeTidOff   = 128
	VolAllocTidOff   = 136
	VolBulkfreeTidOff = 144

	VolCrcSect0Off = 500
	VolCrcSect0Len = 508
	VolCrcSect1Off = 504
	VolCrcSect1Beg = 512
	VolCrcSect1End = 1024

	VolSrootBlocksetOff   = 512
	VolFreemapBlocksetOff = 1024
	VolCopyinfoOff        = 1536
	VolCopyinfoEntSz      = 16

	VolCrcWholeOff = VolumeBytes - 4
	VolCrcWholeLen = VolumeBytes - 4
)

// CopyInfoT is a per-replication-target configuration slot. The core treats
// these as format-only: it preserves whatever newfs wrote and never
// interprets them for replication.
type CopyInfoT struct {
	Copyid uint8
	_      [15]byte
}

// VolumeHeaderT is one 64 KiB volume-header replica: a self-describing
// superblock for the whole HAMMER2 volume.
type VolumeHeaderT struct {
	Magic    uint64
	BootBeg  uint64
	BootEnd  uint64
	AuxBeg   uint64
	AuxEnd   uint64
	VoluSize uint64
	Version  uint32

	Fsid   UUID
	Fstype UUID

	AllocatorSize uint64
	AllocatorFree uint64
	AllocatorBeg  uint64

	MirrorTid   Tid
	FreemapTid  Tid
	InodeTid    Tid
	AllocTid    Tid
	BulkfreeTid Tid

	IcrcSect0 uint32
	IcrcSect1 uint32

	SrootBlockset   [SetCount]BlockRefT
	FreemapBlockset [SetCount]BlockRefT

	Copyinfo [MaxCopyInfo]CopyInfoT

	IcrcVolheader uint32
}

// ReversedEndian reports whether raw carries the byte-reversed magic,
// meaning the volume was produced on a foreign-endian host.
func ReversedEndian(raw []byte) bool {
	if len(raw) < 8 {
		return false
	}
	return binary.LittleEndian.Uint64(raw[0:8]) == VolumeMagicRbo
}

// EncodeVolumeHeader serializes a volume header to its 64 KiB on-disk form.
// It does not compute the three CRCs; callers run the checksum package's
// RecomputeVolumeCrcs over the result before writing it to media.
func EncodeVolumeHeader(v *VolumeHeaderT) []byte {
	buf := make([]byte, VolumeBytes)
	le := binary.LittleEndian
	le.PutUint64(buf[VolMagicOff:], v.Magic)
	le.PutUint64(buf[VolBootBegOff:], v.BootBeg)
	le.PutUint64(buf[VolBootEndOff:], v.BootEnd)
	le.PutUint64(buf[VolAuxBegOff:], v.AuxBeg)
	le.PutUint64(buf[VolAuxEndOff:], v.AuxEnd)
	le.PutUint64(buf[VolVoluSizeOff:], v.VoluSize)
	le.PutUint32(buf[VolVersionOff:], v.Version)
	copy(buf[VolFsidOff:VolFsidOff+16], v.Fsid[:])
	copy(buf[VolFstypeOff:VolFstypeOff+16], v.Fstype[:])
	le.PutUint64(buf[VolAllocSizeOff:], v.AllocatorSize)
	le.PutUint64(buf[VolAllocFreeOff:], v.AllocatorFree)
	le.PutUint64(buf[VolAllocBegOff:], v.AllocatorBeg)
	le.PutUint64(buf[VolMirrorTidOff:], uint64(v.MirrorTid))
	le.PutUint64(buf[VolFreemapTidOff:], uint64(v.FreemapTid))
	le.PutUint64(buf[VolInodeTidOff:], uint64(v.InodeTid))
	le.PutUint64(buf[VolAllocTidOff:], uint64(v.AllocTid))
	le.PutUint64(buf[VolBulkfreeTidOff:], uint64(v.BulkfreeTid))
	le.PutUint32(buf[VolCrcSect0Off:], v.IcrcSect0)
	le.PutUint32(buf[VolCrcSect1Off:], v.IcrcSect1)
	copy(buf[VolSrootBlocksetOff:VolSrootBlocksetOff+512], EncodeBlockSet(v.SrootBlockset))
	copy(buf[VolFreemapBlocksetOff:VolFreemapBlocksetOff+512], EncodeBlockSet(v.FreemapBlockset))
	for i, ci := range v.Copyinfo {
		off := VolCopyinfoOff + i*VolCopyinfoEntSz
		buf[off] = ci.Copyid
	}
	le.PutUint32(buf[VolCrcWholeOff:], v.IcrcVolheader)
	return buf
}

// DecodeVolumeHeader parses a 64 KiB on-disk volume header.
func DecodeVolumeHeader(data []byte) (*VolumeHeaderT, error) {
	if len(data) < VolumeBytes {
		return nil, ErrShortBuffer("volume header", VolumeBytes, len(data))
	}
	le := binary.LittleEndian
	v := &VolumeHeaderT{
		Magic:    le.Uint64(data[VolMagicOff:]),
		BootBeg:  le.Uint64(data[VolBootBegOff:]),
		BootEnd:  le.Uint64(data[VolBootEndOff:]),
		AuxBeg:   le.Uint64(data[VolAuxBegOff:]),
		AuxEnd:   le.Uint64(data[VolAuxEndOff:]),
		VoluSize: le.Uint64(data[VolVoluSizeOff:]),
		Version:  le.Uint32(data[VolVersionOff:]),
	}
	copy(v.Fsid[:], data[VolFsidOff:VolFsidOff+16])
	copy(v.Fstype[:], data[VolFstypeOff:VolFstypeOff+16])
	v.AllocatorSize = le.Uint64(data[VolAllocSizeOff:])
	v.AllocatorFree = le.Uint64(data[VolAllocFreeOff:])
	v.AllocatorBeg = le.Uint64(data[VolAllocBegOff:])
	v.MirrorTid = Tid(le.Uint64(data[VolMirrorTidOff:]))
	v.FreemapTid = Tid(le.Uint64(data[VolFreemapTidOff:]))
	v.InodeTid = Tid(le.Uint64(data[VolInodeTidOff:]))
	v.AllocTid = Tid(le.Uint64(data[VolAllocTidOff:]))
	v.BulkfreeTid = Tid(le.Uint64(data[VolBulkfreeTidOff:]))
	v.IcrcSect0 = le.Uint32(data[VolCrcSect0Off:])
	v.IcrcSect1 = le.Uint32(data[VolCrcSect1Off:])

	sroot, err := DecodeBlockSet(data[VolSrootBlocksetOff : VolSrootBlocksetOff+512])
	if err != nil {
		return nil, err
	}
	v.SrootBlockset = sroot

	freemap, err := DecodeBlockSet(data[VolFreemapBlocksetOff : VolFreemapBlocksetOff+512])
	if err != nil {
		return nil, err
	}
	v.FreemapBlockset = freemap

	for i := range v.Copyinfo {
		off := VolCopyinfoOff + i*VolCopyinfoEntSz
		v.Copyinfo[i].Copyid = data[off]
	}
	v.IcrcVolheader = le.Uint32(data[VolCrcWholeOff:])
	return v, nil
}

// ValidMagic reports whether magic (host order) is one of the two expected
// magics, and whether it is the reversed form.
func ValidMagic(magic uint64) (ok bool, reversed bool) {
	switch magic {
	case VolumeMagicHbo:
		return true, false
	case VolumeMagicRbo:
		return true, true
	default:
		return false, false
	}
}

// VolumeHeaderOffset returns the byte offset of replica index i (0..3)
// within the volume: the start of zone i.
func VolumeHeaderOffset(i int) int64 {
	return int64(i) * ZoneBytes64
}
