// Package walk implements the HAMMER2 topology walker: recursive descent
// over blockrefs starting from one of the synthetic VOLUME/FREEMAP roots or
// an arbitrary blockref, dispatching on blockref type and visiting each
// child with a caller-supplied Visitor. It is grounded on the teacher's
// small-struct-wrapping-a-decoded-record manager pattern
// (internal/managers/container/container_checkpoint_manager.go),
// generalized into a recursive visitor over a tree instead of a single
// flat record.
package walk

import (
	"fmt"

	"github.com/hammer2fs/go-hammer2/internal/interfaces"
	"github.com/hammer2fs/go-hammer2/internal/types"
)

// Visitor is consulted at every node the walker reaches. PreVisit runs
// before the walker decides whether to descend into a node's children --
// a driver verifying check-codes does that verification here and returns
// descend=false to prune a corrupt subtree. PostVisit runs after a node's
// children (if any were descended into) have all been visited, giving the
// walker its documented post-order contract.
//
// A non-nil error from either method aborts the walk immediately; a
// driver that wants to record a problem and continue to sibling subtrees
// (fsck -f, reconstruct without -f) must swallow the error itself and
// return nil.
type Visitor interface {
	PreVisit(parent *types.BlockRefT, childIndex int, bref *types.BlockRefT, media []byte, depth int) (descend bool, err error)
	PostVisit(parent *types.BlockRefT, childIndex int, bref *types.BlockRefT, media []byte, depth int) error
}

// Walker drives the recursive descent against one open volume.
type Walker struct {
	Dev interfaces.BlockDevice
}

// New returns a Walker reading from dev.
func New(dev interfaces.BlockDevice) *Walker {
	return &Walker{Dev: dev}
}

// WalkVolumeRoot walks the synthetic VOLUME root: vh.SrootBlockset's 8
// entries, without reading any media for the root itself (VOLUME is a
// pseudo-type; no real media backs it).
func (w *Walker) WalkVolumeRoot(vh *types.VolumeHeaderT, v Visitor) error {
	root := syntheticRoot(types.BrefTypeVolume, vh.MirrorTid)
	return w.walkSyntheticRoot(&root, vh.SrootBlockset, v)
}

// WalkFreemapRoot walks the synthetic FREEMAP root: vh.FreemapBlockset's 8
// entries.
func (w *Walker) WalkFreemapRoot(vh *types.VolumeHeaderT, v Visitor) error {
	root := syntheticRoot(types.BrefTypeFreemap, vh.FreemapTid)
	return w.walkSyntheticRoot(&root, vh.FreemapBlockset, v)
}

func syntheticRoot(brefType uint8, tid types.Tid) types.BlockRefT {
	return types.BlockRefT{Type: brefType, MirrorTid: tid}
}

func (w *Walker) walkSyntheticRoot(root *types.BlockRefT, children [types.SetCount]types.BlockRefT, v Visitor) error {
	descend, err := v.PreVisit(nil, 0, root, nil, 0)
	if err != nil {
		return err
	}
	if descend {
		for i := range children {
			child := children[i]
			if child.IsEmpty() {
				continue
			}
			if err := w.walk(root, i, &child, 1, v); err != nil {
				return err
			}
		}
	}
	return v.PostVisit(nil, 0, root, nil, 0)
}

// Walk descends from an arbitrary blockref (e.g. a collected PFS root)
// rather than one of the two synthetic roots.
func (w *Walker) Walk(root *types.BlockRefT, v Visitor) error {
	return w.walk(nil, 0, root, 0, v)
}

func (w *Walker) walk(parent *types.BlockRefT, childIndex int, bref *types.BlockRefT, depth int, v Visitor) error {
	media, err := w.Dev.ReadMedia(bref)
	if err != nil {
		return fmt.Errorf("read media for blockref type %d at depth %d: %w", bref.Type, depth, err)
	}

	descend, err := v.PreVisit(parent, childIndex, bref, media, depth)
	if err != nil {
		return err
	}

	if descend {
		children, err := DecodeChildren(bref, media)
		if err != nil {
			return err
		}
		for i := range children {
			child := children[i]
			if child.IsEmpty() {
				continue
			}
			if err := w.walk(bref, i, &child, depth+1, v); err != nil {
				return err
			}
		}

		// A child's PostVisit may have patched bref's own media in place
		// (reconstruct rewriting a blockref's check via patchParent), so
		// the bytes read before descent are no longer what's on disk.
		// Re-read before handing media to our own PostVisit.
		media, err = w.Dev.ReadMedia(bref)
		if err != nil {
			return fmt.Errorf("re-read media for blockref type %d at depth %d: %w", bref.Type, depth, err)
		}
	}

	return v.PostVisit(parent, childIndex, bref, media, depth)
}

// DecodeChildren implements the walker's dispatch table: INODE decodes its
// trailing blockset (unless DIRECTDATA, which has no children),
// INDIRECT/FREEMAP_NODE decode their raw media as a variable-length
// blockref array, the leaf and pseudo-root types have no children, and an
// unrecognized type is a format error.
func DecodeChildren(bref *types.BlockRefT, media []byte) ([]types.BlockRefT, error) {
	switch bref.Type {
	case types.BrefTypeInode:
		if len(media) < types.InodeBytes {
			return nil, nil
		}
		node, err := types.DecodeInode(media)
		if err != nil {
			return nil, err
		}
		if node.Version != types.InodeVersionOne {
			return nil, types.ErrBadInodeVersion(node.Version)
		}
		if node.IsDirectData() {
			return nil, nil
		}
		set, err := node.Blockset()
		if err != nil {
			return nil, err
		}
		return set[:], nil

	case types.BrefTypeIndirect, types.BrefTypeFreemapNode:
		return types.DecodeBlockRefArray(media)

	case types.BrefTypeEmpty, types.BrefTypeData, types.BrefTypeFreemapLeaf,
		types.BrefTypeFreemap, types.BrefTypeVolume:
		return nil, nil

	default:
		return nil, types.ErrUnknownBrefType(bref.Type)
	}
}
