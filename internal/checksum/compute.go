package checksum

import (
	"bytes"
	"fmt"

	"github.com/hammer2fs/go-hammer2/internal/types"
)

// Compute returns the 24-byte check value for media under the named
// algorithm, encoding ISCSI32/XXH64/Freemap results into the low bytes the
// same way BlockRefT.Check stores them.
func Compute(algo uint8, media []byte) ([24]byte, error) {
	var out [24]byte
	switch algo {
	case types.CheckNone:
		return out, nil
	case types.CheckIscsi32:
		v := Iscsi32(media)
		var tmp types.BlockRefT
		tmp.SetIscsi32Value(v)
		return tmp.Check, nil
	case types.CheckXxhash64:
		v := Xxhash64(media, types.XxhSeed)
		var tmp types.BlockRefT
		tmp.SetXxhash64Value(v)
		return tmp.Check, nil
	case types.CheckSha192:
		return Sha192(media), nil
	case types.CheckFreemap:
		v := Iscsi32(media)
		var tmp types.BlockRefT
		tmp.SetFreemapCheckValue(types.FreemapCheck{Icrc32: v})
		return tmp.Check, nil
	default:
		return out, fmt.Errorf("unknown check algorithm %d", algo)
	}
}

// Verify recomputes the check-code for media using the algorithm named by
// bref.Methods and compares it against bref.Check. It returns a
// *types.CheckMismatch on mismatch.
func Verify(bref *types.BlockRefT, media []byte) error {
	algo := bref.CheckAlgo()
	got, err := Compute(algo, media)
	if err != nil {
		return err
	}
	if !bytes.Equal(got[:], bref.Check[:]) {
		return &types.CheckMismatch{Algo: algo, Expected: bref.Check, Actual: got}
	}
	return nil
}
