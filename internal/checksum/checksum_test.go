package checksum

import (
	"testing"

	"github.com/hammer2fs/go-hammer2/internal/types"
)

func TestIscsi32KnownVectors(t *testing.T) {
	// The iSCSI CRC-32C of an empty buffer is 0.
	if got := Iscsi32(nil); got != 0 {
		t.Fatalf("Iscsi32(nil) = %#x, want 0", got)
	}
	// "123456789" is the standard CRC-32C self-check vector.
	const want = 0xE3069283
	if got := Iscsi32([]byte("123456789")); got != want {
		t.Fatalf("Iscsi32(123456789) = %#x, want %#x", got, want)
	}
}

func TestIscsi32ExtChunked(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	whole := Iscsi32(data)

	mid := len(data) / 2
	chunked := Iscsi32Ext(Iscsi32Ext(0, data[:mid]), data[mid:])
	if chunked != whole {
		t.Fatalf("chunked Iscsi32Ext = %#x, want %#x", chunked, whole)
	}
}

func TestXxhash64EmptySeedZero(t *testing.T) {
	const want uint64 = 0xEF46DB3751D8E999
	if got := Xxhash64(nil, 0); got != want {
		t.Fatalf("Xxhash64(nil, 0) = %#x, want %#x", got, want)
	}
}

func TestXxhash64SeedChangesDigest(t *testing.T) {
	data := []byte("hammer2 blockref payload")
	a := Xxhash64(data, types.XxhSeed)
	b := Xxhash64(data, types.XxhSeed+1)
	if a == b {
		t.Fatalf("Xxhash64 produced identical digests for different seeds")
	}
}

func TestXxhash64StableAcrossLengths(t *testing.T) {
	// Exercise every internal branch: <32B tail-only, >=32B with a
	// trailing partial word, and an exact multiple of 32.
	for _, n := range []int{0, 1, 4, 8, 31, 32, 63, 64, 96} {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i * 7)
		}
		got1 := Xxhash64(data, types.XxhSeed)
		got2 := Xxhash64(append([]byte{}, data...), types.XxhSeed)
		if got1 != got2 {
			t.Fatalf("Xxhash64 not deterministic at length %d", n)
		}
	}
}

func TestSha192FoldsTo24Bytes(t *testing.T) {
	digest := Sha192([]byte("root inode payload"))
	if len(digest) != 24 {
		t.Fatalf("Sha192 returned %d bytes, want 24", len(digest))
	}
	// Folding is deterministic.
	again := Sha192([]byte("root inode payload"))
	if digest != again {
		t.Fatalf("Sha192 not deterministic")
	}
}

func TestDirhashSetsVisibleBit(t *testing.T) {
	key := Dirhash("ROOT")
	if key&visibleBit == 0 {
		t.Fatalf("Dirhash(%q) = %#x, visible bit not set", "ROOT", key)
	}
	if Dirhash("ROOT") != Dirhash("ROOT") {
		t.Fatalf("Dirhash is not deterministic")
	}
	if Dirhash("ROOT") == Dirhash("DATA") {
		t.Fatalf("Dirhash collided on distinct short names")
	}
}

func TestComputeAndVerifyRoundTrip(t *testing.T) {
	media := []byte("some inode or indirect block payload, arbitrary length")

	for _, algo := range []uint8{types.CheckIscsi32, types.CheckXxhash64, types.CheckSha192} {
		check, err := Compute(algo, media)
		if err != nil {
			t.Fatalf("Compute(%d) error: %v", algo, err)
		}
		var bref types.BlockRefT
		bref.SetMethods(algo, types.CompNone)
		bref.Check = check

		if err := Verify(&bref, media); err != nil {
			t.Fatalf("Verify(%d) failed on matching media: %v", algo, err)
		}

		bref.Check[0] ^= 0xFF
		if err := Verify(&bref, media); err == nil {
			t.Fatalf("Verify(%d) did not detect corrupted check value", algo)
		}
	}
}

func TestRecomputeAndVerifyVolumeCrcs(t *testing.T) {
	raw := make([]byte, types.VolumeBytes)
	for i := range raw {
		raw[i] = byte(i)
	}
	// Fill in the three CRC slots, overwriting the byte pattern they held,
	// so verification checks freshly recomputed values.
	RecomputeVolumeCrcs(raw)

	sect0Err, sect1Err, wholeErr := VerifyVolumeCrcs(raw)
	if sect0Err != nil || sect1Err != nil || wholeErr != nil {
		t.Fatalf("freshly recomputed header failed verification: sect0=%v sect1=%v whole=%v", sect0Err, sect1Err, wholeErr)
	}

	raw[10] ^= 0xFF // corrupt a byte inside SECT0's range
	sect0Err, _, wholeErr = VerifyVolumeCrcs(raw)
	if sect0Err == nil {
		t.Fatalf("corrupting SECT0's range was not detected")
	}
	if wholeErr == nil {
		t.Fatalf("corrupting SECT0's range did not also break the whole-header CRC")
	}
}
