package reconstruct

import (
	"fmt"

	"github.com/hammer2fs/go-hammer2/internal/checksum"
	"github.com/hammer2fs/go-hammer2/internal/interfaces"
	"github.com/hammer2fs/go-hammer2/internal/types"
)

// patchVisitor implements walk.Visitor for one replica's FREEMAP or VOLUME
// walk. It always descends (reconstruct never prunes a subtree: data below
// a mismatched check may itself be fine and still needs its own check
// re-derived against its own parent); the actual recompute-and-maybe-patch
// happens in PostVisit, once a node's own media is known, against the
// check value its parent recorded for it.
type patchVisitor struct {
	dev interfaces.BlockDevice
	cfg Config
	vh  *types.VolumeHeaderT

	changes []Change
}

func newPatchVisitor(dev interfaces.BlockDevice, cfg Config) *patchVisitor {
	return &patchVisitor{dev: dev, cfg: cfg}
}

// bindHeader lets the driver hand the visitor the decoded header so that a
// mismatch directly under a VOLUME/FREEMAP pseudo-root can be patched into
// the header's resident blocksets instead of through a WriteMedia call.
func (v *patchVisitor) bindHeader(vh *types.VolumeHeaderT) { v.vh = vh }

func (v *patchVisitor) PreVisit(parent *types.BlockRefT, childIndex int, bref *types.BlockRefT, media []byte, depth int) (bool, error) {
	return true, nil
}

func (v *patchVisitor) PostVisit(parent *types.BlockRefT, childIndex int, bref *types.BlockRefT, media []byte, depth int) error {
	if parent == nil || bref.IsEmpty() {
		return nil
	}

	algo := bref.CheckAlgo()
	if algo == types.CheckSha192 {
		expected, err := checksum.Compute(algo, media)
		if err == nil && expected == bref.Check {
			return nil
		}
		v.changes = append(v.changes, v.change(parent, childIndex, bref, depth, false, true))
		return nil
	}

	expected, err := checksum.Compute(algo, media)
	if err != nil {
		return fmt.Errorf("compute check for child %d under parent type %d: %w", childIndex, parent.Type, err)
	}
	if expected == bref.Check {
		return nil
	}

	applied := false
	if v.cfg.Force {
		patched := *bref
		patched.Check = expected
		if err := v.patchParent(parent, childIndex, patched); err != nil {
			return fmt.Errorf("patch parent for child %d: %w", childIndex, err)
		}
		applied = true
	}
	v.changes = append(v.changes, v.change(parent, childIndex, bref, depth, applied, false))
	return nil
}

// patchParent rewrites the slot child occupies inside parent's own media
// (or, for the two pseudo-roots, directly in the bound volume header) and
// writes it back.
func (v *patchVisitor) patchParent(parent *types.BlockRefT, childIndex int, child types.BlockRefT) error {
	switch parent.Type {
	case types.BrefTypeVolume:
		v.vh.SrootBlockset[childIndex] = child
		return nil
	case types.BrefTypeFreemap:
		v.vh.FreemapBlockset[childIndex] = child
		return nil
	case types.BrefTypeInode:
		media, err := v.dev.ReadMedia(parent)
		if err != nil {
			return err
		}
		node, err := types.DecodeInode(media)
		if err != nil {
			return err
		}
		set, err := node.Blockset()
		if err != nil {
			return err
		}
		set[childIndex] = child
		node.SetBlockset(set)
		return v.dev.WriteMedia(parent, types.EncodeInode(node))
	case types.BrefTypeIndirect, types.BrefTypeFreemapNode:
		media, err := v.dev.ReadMedia(parent)
		if err != nil {
			return err
		}
		arr, err := types.DecodeBlockRefArray(media)
		if err != nil {
			return err
		}
		if childIndex >= len(arr) {
			return &types.TopologyError{Detail: fmt.Sprintf("child index %d out of range for parent with %d entries", childIndex, len(arr))}
		}
		arr[childIndex] = child
		return v.dev.WriteMedia(parent, types.EncodeBlockRefArray(arr))
	default:
		return &types.TopologyError{Detail: fmt.Sprintf("cannot patch child of parent type %d", parent.Type)}
	}
}

func (v *patchVisitor) change(parent *types.BlockRefT, childIndex int, bref *types.BlockRefT, depth int, applied, unsupported bool) Change {
	return Change{
		Depth:       depth,
		ParentType:  parent.Type,
		ChildIndex:  childIndex,
		DataOff:     bref.DataOff,
		Methods:     bref.Methods,
		ChildType:   bref.Type,
		Applied:     applied,
		Unsupported: unsupported,
	}
}
