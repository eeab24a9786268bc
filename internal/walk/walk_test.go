package walk_test

import (
	"testing"

	"github.com/hammer2fs/go-hammer2/internal/types"
	"github.com/hammer2fs/go-hammer2/internal/walk"
)

// memDevice is a minimal in-memory interfaces.BlockDevice stand-in,
// addressing media by a blockref's IoOffset() into a single flat buffer.
// It exists only to exercise the walker in isolation from internal/device.
type memDevice struct {
	buf []byte
}

func newMemDevice(size int) *memDevice { return &memDevice{buf: make([]byte, size)} }

func (m *memDevice) ReadMedia(bref *types.BlockRefT) ([]byte, error) {
	n := bref.BytesOf()
	if n == 0 {
		return nil, nil
	}
	off := bref.IoOffset()
	return append([]byte(nil), m.buf[off:off+n]...), nil
}

func (m *memDevice) WriteMedia(bref *types.BlockRefT, buf []byte) error {
	off := bref.IoOffset()
	copy(m.buf[off:], buf)
	return nil
}

func (m *memDevice) ReadAt(offset int64, length int) ([]byte, error) {
	return append([]byte(nil), m.buf[offset:offset+int64(length)]...), nil
}

func (m *memDevice) WriteAt(offset int64, buf []byte) error {
	copy(m.buf[offset:], buf)
	return nil
}

func (m *memDevice) Size() int64    { return int64(len(m.buf)) }
func (m *memDevice) ReadOnly() bool { return false }
func (m *memDevice) Close() error   { return nil }

// countingVisitor records the order and depth of every node visited.
type countingVisitor struct {
	preOrder  []int
	postOrder []int
}

func (v *countingVisitor) PreVisit(parent *types.BlockRefT, childIndex int, bref *types.BlockRefT, media []byte, depth int) (bool, error) {
	v.preOrder = append(v.preOrder, depth)
	return true, nil
}

func (v *countingVisitor) PostVisit(parent *types.BlockRefT, childIndex int, bref *types.BlockRefT, media []byte, depth int) error {
	v.postOrder = append(v.postOrder, depth)
	return nil
}

// putIndirectChild writes a 1-entry INDIRECT block at off containing leaf,
// and returns a blockref of type INDIRECT pointing at it.
func putIndirectChild(dev *memDevice, off uint64, leaf types.BlockRefT) types.BlockRefT {
	raw := types.EncodeBlockRefArray([]types.BlockRefT{leaf})
	copy(dev.buf[off:], raw)
	var bref types.BlockRefT
	bref.Type = types.BrefTypeIndirect
	bref.SetDataOff(off, 10) // 1024 bytes is plenty for one blockref
	return bref
}

func TestWalkVolumeRootVisitsAllNonEmptyChildren(t *testing.T) {
	dev := newMemDevice(1 << 20)
	vh := &types.VolumeHeaderT{MirrorTid: 1}

	var dataLeaf types.BlockRefT
	dataLeaf.Type = types.BrefTypeData
	dataLeaf.SetDataOff(0x10000, 10)

	indirect := putIndirectChild(dev, 0x20000, dataLeaf)
	vh.SrootBlockset[0] = indirect

	v := &countingVisitor{}
	w := walk.New(dev)
	if err := w.WalkVolumeRoot(vh, v); err != nil {
		t.Fatalf("WalkVolumeRoot: %v", err)
	}

	// Expect depth sequence: root(0), indirect(1), data(2), in pre-order,
	// and the reverse in post-order (children visited before their parent).
	wantPre := []int{0, 1, 2}
	if !equalInts(v.preOrder, wantPre) {
		t.Fatalf("preOrder = %v, want %v", v.preOrder, wantPre)
	}
	wantPost := []int{2, 1, 0}
	if !equalInts(v.postOrder, wantPost) {
		t.Fatalf("postOrder = %v, want %v", v.postOrder, wantPost)
	}
}

func TestWalkSkipsEmptyChildren(t *testing.T) {
	dev := newMemDevice(1 << 16)
	vh := &types.VolumeHeaderT{MirrorTid: 1}
	// Every blockset entry defaults to BrefTypeEmpty (zero value).

	v := &countingVisitor{}
	w := walk.New(dev)
	if err := w.WalkVolumeRoot(vh, v); err != nil {
		t.Fatalf("WalkVolumeRoot: %v", err)
	}
	if len(v.preOrder) != 1 || v.preOrder[0] != 0 {
		t.Fatalf("expected only the synthetic root to be visited, got %v", v.preOrder)
	}
}

// abortVisitor returns an error from PreVisit on the Nth call.
type abortVisitor struct {
	calls   int
	failAt  int
	wantErr error
}

func (v *abortVisitor) PreVisit(parent *types.BlockRefT, childIndex int, bref *types.BlockRefT, media []byte, depth int) (bool, error) {
	v.calls++
	if v.calls == v.failAt {
		return false, v.wantErr
	}
	return true, nil
}

func (v *abortVisitor) PostVisit(parent *types.BlockRefT, childIndex int, bref *types.BlockRefT, media []byte, depth int) error {
	return nil
}

func TestWalkAbortsOnVisitorError(t *testing.T) {
	dev := newMemDevice(1 << 16)
	vh := &types.VolumeHeaderT{MirrorTid: 1}

	var dataLeaf types.BlockRefT
	dataLeaf.Type = types.BrefTypeData
	dataLeaf.SetDataOff(0x1000, 10)
	vh.SrootBlockset[0] = dataLeaf

	sentinel := &customErr{"boom"}
	v := &abortVisitor{failAt: 2, wantErr: sentinel}
	w := walk.New(dev)
	err := w.WalkVolumeRoot(vh, v)
	if err != sentinel {
		t.Fatalf("WalkVolumeRoot error = %v, want %v", err, sentinel)
	}
}

type customErr struct{ msg string }

func (e *customErr) Error() string { return e.msg }

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
