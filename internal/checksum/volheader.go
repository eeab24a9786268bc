package checksum

import (
	"encoding/binary"

	"github.com/hammer2fs/go-hammer2/internal/types"
)

// RecomputeVolumeCrcs fills in raw's three volume-header CRC slots in the
// documented order -- SECT1 first, then SECT0 (whose covered range [0,508)
// includes SECT1's already-written slot), then the whole-header CRC -- and
// returns the three values so callers can compare or log them. raw must be
// exactly types.VolumeBytes long and is mutated in place.
func RecomputeVolumeCrcs(raw []byte) (sect0, sect1, whole uint32) {
	sect1 = Iscsi32(raw[types.VolCrcSect1Beg:types.VolCrcSect1End])
	binary.LittleEndian.PutUint32(raw[types.VolCrcSect1Off:], sect1)

	sect0Region := make([]byte, types.VolCrcSect0Len)
	copy(sect0Region, raw[:types.VolCrcSect0Len])
	binary.LittleEndian.PutUint32(sect0Region[types.VolCrcSect0Off:], 0)
	sect0 = Iscsi32(sect0Region)
	binary.LittleEndian.PutUint32(raw[types.VolCrcSect0Off:], sect0)

	whole = Iscsi32(raw[:types.VolCrcWholeLen])
	binary.LittleEndian.PutUint32(raw[types.VolCrcWholeOff:], whole)
	return
}

// VerifyVolumeCrcs independently checks each of the three volume-header
// CRCs against raw's stored values, returning one error per mismatch (nil
// entries mean that CRC matched).
func VerifyVolumeCrcs(raw []byte) (sect0Err, sect1Err, wholeErr error) {
	storedSect0 := binary.LittleEndian.Uint32(raw[types.VolCrcSect0Off:])
	storedSect1 := binary.LittleEndian.Uint32(raw[types.VolCrcSect1Off:])
	storedWhole := binary.LittleEndian.Uint32(raw[types.VolCrcWholeOff:])

	gotSect1 := Iscsi32(raw[types.VolCrcSect1Beg:types.VolCrcSect1End])
	if gotSect1 != storedSect1 {
		sect1Err = &types.CheckMismatch{Algo: types.CheckIscsi32}
	}

	sect0Region := make([]byte, types.VolCrcSect0Len)
	copy(sect0Region, raw[:types.VolCrcSect0Len])
	binary.LittleEndian.PutUint32(sect0Region[types.VolCrcSect0Off:], 0)
	gotSect0 := Iscsi32(sect0Region)
	if gotSect0 != storedSect0 {
		sect0Err = &types.CheckMismatch{Algo: types.CheckIscsi32}
	}

	gotWhole := Iscsi32(raw[:types.VolCrcWholeLen])
	if gotWhole != storedWhole {
		wholeErr = &types.CheckMismatch{Algo: types.CheckIscsi32}
	}
	return
}
