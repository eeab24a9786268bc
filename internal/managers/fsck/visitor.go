package fsck

import (
	"github.com/hammer2fs/go-hammer2/internal/checksum"
	"github.com/hammer2fs/go-hammer2/internal/types"
	"github.com/hammer2fs/go-hammer2/internal/walk"
)

// verifyVisitor implements walk.Visitor for one tree walk (the FREEMAP
// root, the VOLUME root, or a single PFS's subtree). It tallies Stats and
// collects Diagnostics as it goes.
//
// Suppression: when a blockref fails its check (and -f is not set), its
// direct children are still visited once ("one more level", per spec.md
// §4.5.1) but are never descended into themselves. pushed tracks, by the
// address of the bref this call received, whether this node was the one
// that opened a suppression window, so PostVisit knows whether to close it;
// that address is stable across a single walk() invocation's PreVisit and
// PostVisit calls.
type verifyVisitor struct {
	rootKind uint8 // types.BrefTypeFreemap or types.BrefTypeVolume
	cfg      Config
	tick     func()

	stats       Stats
	diagnostics []Diagnostic

	suppressStack []int
	pushed        map[*types.BlockRefT]bool
}

func newVerifyVisitor(rootKind uint8, cfg Config, tick func()) *verifyVisitor {
	return &verifyVisitor{rootKind: rootKind, cfg: cfg, tick: tick, pushed: map[*types.BlockRefT]bool{}}
}

func (v *verifyVisitor) PreVisit(parent *types.BlockRefT, childIndex int, bref *types.BlockRefT, media []byte, depth int) (bool, error) {
	if v.tick != nil {
		v.tick()
	}

	// The two synthetic pseudo-roots never contribute to the tally.
	if bref.Type == types.BrefTypeVolume || bref.Type == types.BrefTypeFreemap {
		return true, nil
	}

	// The walker never descends into empty slots, so -e's empty tally is
	// taken here, from this node's own child array: every EMPTY entry in a
	// blockset or indirect array is one empty blockref.
	if v.cfg.CountEmpty {
		if children, err := walk.DecodeChildren(bref, media); err == nil {
			for i := range children {
				if children[i].IsEmpty() {
					v.stats.TotalEmpty++
				}
			}
		}
	}

	// The super-root's own blockref (the single child directly under the
	// VOLUME pseudo-root) is an anchor, not user-visible content; exclude
	// it from the tally the same way the pseudo-roots are excluded, while
	// still verifying its check-code.
	excluded := v.rootKind == types.BrefTypeVolume && parent != nil && parent.Type == types.BrefTypeVolume
	if !excluded {
		v.tally(bref, depth)
	}

	failed := false
	if err := checksum.Verify(bref, media); err != nil {
		failed = true
		v.stats.TotalInvalid++
		v.diagnostics = append(v.diagnostics, v.diagnostic(parent, childIndex, bref, depth, err.Error()))
	}

	if v.suppressed(depth) {
		return false, nil
	}

	if failed && !v.cfg.Force {
		v.suppressStack = append(v.suppressStack, depth+1)
		v.pushed[bref] = true
		return true, nil
	}

	return true, nil
}

func (v *verifyVisitor) PostVisit(parent *types.BlockRefT, childIndex int, bref *types.BlockRefT, media []byte, depth int) error {
	if v.pushed[bref] {
		delete(v.pushed, bref)
		v.suppressStack = v.suppressStack[:len(v.suppressStack)-1]
	}
	return nil
}

func (v *verifyVisitor) suppressed(depth int) bool {
	return len(v.suppressStack) > 0 && depth == v.suppressStack[len(v.suppressStack)-1]
}

// tally classifies bref by type and, for INODE blockrefs in a VOLUME walk,
// by depth: depth 2 (a direct child of the super-root) is a PFS/label root
// and counts as Inode; anything deeper is an ordinary directory entry and
// counts as Dirent. This distinction is not spelled out byte-for-byte in
// the source; it is chosen to match the documented seed scenario (a fresh
// two-label newfs image reports "2 inode, 0 dirent").
func (v *verifyVisitor) tally(bref *types.BlockRefT, depth int) {
	v.stats.TotalBlockref++
	v.stats.TotalBytes += bref.BytesOf()

	switch bref.Type {
	case types.BrefTypeInode:
		if v.rootKind == types.BrefTypeVolume && depth >= 3 {
			v.stats.Dirent++
		} else {
			v.stats.Inode++
		}
	case types.BrefTypeIndirect:
		v.stats.Indirect++
	case types.BrefTypeData:
		v.stats.Data++
	case types.BrefTypeFreemapNode:
		v.stats.FreemapNode++
	case types.BrefTypeFreemapLeaf:
		v.stats.FreemapLeaf++
	}
}

func (v *verifyVisitor) diagnostic(parent *types.BlockRefT, childIndex int, bref *types.BlockRefT, depth int, reason string) Diagnostic {
	var parentType uint8
	if parent != nil {
		parentType = parent.Type
	}
	return Diagnostic{
		Depth:      depth,
		ParentType: parentType,
		ChildIndex: childIndex,
		DataOff:    bref.DataOff,
		Methods:    bref.Methods,
		Type:       bref.Type,
		Reason:     reason,
	}
}
