package types

import (
	"bytes"
	"testing"
)

func TestBlockRefEncodeDecodeRoundTrip(t *testing.T) {
	var b BlockRefT
	b.Type = BrefTypeInode
	b.SetMethods(CheckXxhash64, CompAutozero)
	b.Copyid = CopyidLocal
	b.Key = 0xdeadbeef
	b.MirrorTid = 42
	b.ModifyTid = 7
	b.SetDataOff(0x10000, 12)
	b.SetXxhash64Value(0x0123456789abcdef)
	b.Flags = BrefFlagPfsroot

	raw := EncodeBlockRef(&b)
	if len(raw) != BlockRefBytes {
		t.Fatalf("encoded length = %d, want %d", len(raw), BlockRefBytes)
	}

	got, err := DecodeBlockRef(raw)
	if err != nil {
		t.Fatalf("DecodeBlockRef: %v", err)
	}
	if *got != b {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *got, b)
	}
	if got.BytesOf() != 4096 {
		t.Fatalf("BytesOf() = %d, want 4096", got.BytesOf())
	}
	if got.IoOffset() != 0x10000 {
		t.Fatalf("IoOffset() = %#x, want %#x", got.IoOffset(), 0x10000)
	}
	if got.CheckAlgo() != CheckXxhash64 || got.CompAlgo() != CompAutozero {
		t.Fatalf("CheckAlgo/CompAlgo decode mismatch: %d/%d", got.CheckAlgo(), got.CompAlgo())
	}
	if got.Xxhash64Value() != 0x0123456789abcdef {
		t.Fatalf("Xxhash64Value() = %#x", got.Xxhash64Value())
	}
}

func TestBlockRefDataOffRadixZeroMeansEmpty(t *testing.T) {
	var b BlockRefT
	if b.BytesOf() != 0 {
		t.Fatalf("zero-value blockref BytesOf() = %d, want 0", b.BytesOf())
	}
	if !b.IsEmpty() {
		t.Fatalf("zero-value blockref Type should default to BrefTypeEmpty")
	}
}

func TestDecodeBlockRefShortBufferFails(t *testing.T) {
	if _, err := DecodeBlockRef(make([]byte, BlockRefBytes-1)); err == nil {
		t.Fatalf("expected error decoding a short blockref buffer")
	}
}

func TestBlockSetEncodeDecodeRoundTrip(t *testing.T) {
	var set [SetCount]BlockRefT
	for i := range set {
		set[i].Type = BrefTypeInode
		set[i].Key = uint64(i)
	}
	raw := EncodeBlockSet(set)
	got, err := DecodeBlockSet(raw)
	if err != nil {
		t.Fatalf("DecodeBlockSet: %v", err)
	}
	if got != set {
		t.Fatalf("blockset round trip mismatch")
	}
}

func TestInodeEncodeDecodeRoundTrip(t *testing.T) {
	n := &InodeT{
		Version:   1,
		Mode:      0755,
		Type:      ObjtypeDirectory,
		OpFlags:   OpflagPfsroot,
		Inum:      1,
		Nlinks:    1,
		NameKey:   0x8000000000000001,
		Ctime:     100,
		Mtime:     200,
		Atime:     300,
		Btime:     400,
		PfsType:   PfstypeMaster,
		CompAlgo:  CompNone,
		CheckAlgo: CheckXxhash64,
	}
	n.SetName("ROOT")

	raw := EncodeInode(n)
	if len(raw) != InodeBytes {
		t.Fatalf("encoded length = %d, want %d", len(raw), InodeBytes)
	}
	got, err := DecodeInode(raw)
	if err != nil {
		t.Fatalf("DecodeInode: %v", err)
	}
	if got.Name() != "ROOT" {
		t.Fatalf("Name() = %q, want ROOT", got.Name())
	}
	if got.Inum != 1 || got.NameKey != n.NameKey || got.CheckAlgo != CheckXxhash64 {
		t.Fatalf("decoded inode fields mismatch: %+v", got)
	}
	if got.IsDirectData() {
		t.Fatalf("inode should not be DIRECTDATA")
	}
	if !got.IsPfsRoot() {
		t.Fatalf("inode should be a PFS root")
	}
}

func TestInodeBlocksetRoundTrip(t *testing.T) {
	n := &InodeT{}
	var set [SetCount]BlockRefT
	set[0].Type = BrefTypeInode
	set[0].Key = 42
	n.SetBlockset(set)

	if n.IsDirectData() {
		t.Fatalf("SetBlockset must clear OpflagDirectdata")
	}
	got, err := n.Blockset()
	if err != nil {
		t.Fatalf("Blockset: %v", err)
	}
	if got != set {
		t.Fatalf("blockset round trip mismatch")
	}
}

func TestInodeSetNameRejectsOverlong(t *testing.T) {
	n := &InodeT{}
	long := bytes.Repeat([]byte{'a'}, InodeMaxName+1)
	if n.SetName(string(long)) {
		t.Fatalf("SetName should reject a name longer than InodeMaxName")
	}
	if n.SetName(string(long[:InodeMaxName])) != true {
		t.Fatalf("SetName should accept a name of exactly InodeMaxName bytes")
	}
}

func TestVolumeHeaderEncodeDecodeRoundTrip(t *testing.T) {
	vh := &VolumeHeaderT{
		Magic:         VolumeMagicHbo,
		BootBeg:       ZoneSeg,
		VoluSize:      200 * 1024 * 1024,
		Version:       1,
		AllocatorSize: 1000,
		AllocatorFree: 1000,
		MirrorTid:     16,
		FreemapTid:    16,
	}
	vh.SrootBlockset[0].Type = BrefTypeInode
	vh.SrootBlockset[0].Key = 0

	raw := EncodeVolumeHeader(vh)
	if len(raw) != VolumeBytes {
		t.Fatalf("encoded length = %d, want %d", len(raw), VolumeBytes)
	}
	got, err := DecodeVolumeHeader(raw)
	if err != nil {
		t.Fatalf("DecodeVolumeHeader: %v", err)
	}
	if got.Magic != VolumeMagicHbo {
		t.Fatalf("Magic = %#x, want %#x", got.Magic, VolumeMagicHbo)
	}
	if got.SrootBlockset[0].Type != BrefTypeInode {
		t.Fatalf("sroot_blockset[0].Type not preserved")
	}
	if ok, reversed := ValidMagic(got.Magic); !ok || reversed {
		t.Fatalf("ValidMagic(%#x) = %v,%v, want true,false", got.Magic, ok, reversed)
	}
}

func TestValidMagicDetectsReversedEndian(t *testing.T) {
	ok, reversed := ValidMagic(VolumeMagicRbo)
	if !ok || !reversed {
		t.Fatalf("ValidMagic(reversed) = %v,%v, want true,true", ok, reversed)
	}
	ok, _ = ValidMagic(0xBADBADBADBADBAD)
	if ok {
		t.Fatalf("ValidMagic accepted a bogus magic")
	}
}

func TestVolumeHeaderOffsetPerReplica(t *testing.T) {
	for i := 0; i < MaxVolHdrs; i++ {
		want := int64(i) * ZoneBytes64
		if got := VolumeHeaderOffset(i); got != want {
			t.Fatalf("VolumeHeaderOffset(%d) = %d, want %d", i, got, want)
		}
	}
}

func TestDecodeBlockRefArrayVariableLength(t *testing.T) {
	arr := make([]BlockRefT, 5)
	for i := range arr {
		arr[i].Type = BrefTypeIndirect
		arr[i].Key = uint64(i)
	}
	raw := EncodeBlockRefArray(arr)
	got, err := DecodeBlockRefArray(raw)
	if err != nil {
		t.Fatalf("DecodeBlockRefArray: %v", err)
	}
	if len(got) != len(arr) {
		t.Fatalf("decoded %d entries, want %d", len(got), len(arr))
	}
	for i := range arr {
		if got[i] != arr[i] {
			t.Fatalf("entry %d mismatch: %+v vs %+v", i, got[i], arr[i])
		}
	}
}
