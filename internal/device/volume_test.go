package device

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/hammer2fs/go-hammer2/internal/types"
)

func newTestVolume(t *testing.T, size int64) (*Volume, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "volume.img")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.Truncate(size); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	f.Close()

	v, err := Open(path, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { v.Close() })
	return v, path
}

func TestVolumeSizeMatchesRegularFile(t *testing.T) {
	v, _ := newTestVolume(t, 4*types.PBufSize)
	if v.Size() != 4*types.PBufSize {
		t.Fatalf("Size() = %d, want %d", v.Size(), 4*types.PBufSize)
	}
}

func TestReadAtWriteAtRoundTrip(t *testing.T) {
	v, _ := newTestVolume(t, 4*types.PBufSize)
	payload := bytes.Repeat([]byte{0xAB}, 4096)

	if err := v.WriteAt(8192, payload); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	got, err := v.ReadAt(8192, len(payload))
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("read back mismatch")
	}
}

func TestReadOnlyVolumeRejectsWrites(t *testing.T) {
	_, path := newTestVolume(t, types.PBufSize)
	ro, err := Open(path, true)
	if err != nil {
		t.Fatalf("Open read-only: %v", err)
	}
	defer ro.Close()

	if err := ro.WriteAt(0, []byte{1}); err == nil {
		t.Fatalf("expected write to read-only volume to fail")
	}
}

func TestReadMediaUnalignedOffset(t *testing.T) {
	v, _ := newTestVolume(t, 4*types.PBufSize)

	payload := bytes.Repeat([]byte{0x42}, 4096)
	// Place the payload at an offset that is 64-byte aligned but not
	// LBufSize aligned, to exercise the shift-to-front path.
	const dataOff = 16384 + 64*3
	if err := v.WriteAt(dataOff, payload); err != nil {
		t.Fatalf("seed WriteAt: %v", err)
	}

	var bref types.BlockRefT
	bref.SetDataOff(dataOff, 12) // radix 12 -> 4096 bytes

	got, err := v.ReadMedia(&bref)
	if err != nil {
		t.Fatalf("ReadMedia: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("ReadMedia returned mismatched data")
	}
}

func TestWriteMediaRMWPreservesNeighboringBytes(t *testing.T) {
	v, _ := newTestVolume(t, 4*types.PBufSize)

	sentinel := bytes.Repeat([]byte{0x99}, int(types.PBufSize))
	if err := v.WriteAt(0, sentinel); err != nil {
		t.Fatalf("seed sentinel: %v", err)
	}

	var bref types.BlockRefT
	bref.SetDataOff(16384+128, 10) // radix 10 -> 1024 bytes, unaligned within its window

	payload := bytes.Repeat([]byte{0x11}, 1024)
	if err := v.WriteMedia(&bref, payload); err != nil {
		t.Fatalf("WriteMedia: %v", err)
	}

	got, err := v.ReadMedia(&bref)
	if err != nil {
		t.Fatalf("ReadMedia after WriteMedia: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("WriteMedia/ReadMedia round trip mismatch")
	}

	before, err := v.ReadAt(16384, 128)
	if err != nil {
		t.Fatalf("ReadAt before window: %v", err)
	}
	if !bytes.Equal(before, sentinel[16384:16384+128]) {
		t.Fatalf("WriteMedia clobbered bytes before its window")
	}
}

func TestReadMediaRejectsBadRadix(t *testing.T) {
	v, _ := newTestVolume(t, types.PBufSize)
	var bref types.BlockRefT
	bref.SetDataOff(0, types.RadixMax+1) // 128 KiB: larger than any valid allocation
	if _, err := v.ReadMedia(&bref); err == nil {
		t.Fatalf("expected ReadMedia to reject radix %d", types.RadixMax+1)
	}
	bref.SetDataOff(0, types.RadixMin-1)
	if _, err := v.ReadMedia(&bref); err == nil {
		t.Fatalf("expected ReadMedia to reject radix %d", types.RadixMin-1)
	}
}

func TestEmptyBlockRefReadsNothing(t *testing.T) {
	v, _ := newTestVolume(t, types.PBufSize)
	var bref types.BlockRefT // DataOff == 0 -> BytesOf() == 0
	got, err := v.ReadMedia(&bref)
	if err != nil {
		t.Fatalf("ReadMedia on empty blockref: %v", err)
	}
	if got != nil {
		t.Fatalf("ReadMedia on empty blockref returned %d bytes, want nil", len(got))
	}
}
