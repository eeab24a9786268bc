// Package newfs implements the from-scratch image builder: it synthesizes
// a minimal valid HAMMER2 image -- reserved zones, volume header replicas,
// a super-root inode, one root inode per requested label, a blockset
// pointing at them, and the CRCs that tie it all together. Grounded on the
// teacher's constructor-builds-struct-then-serializes shape
// (internal/parsers/container/container_superblock_reader.go builds a
// struct from bytes; newfs runs that in reverse), generalized from decode
// to encode-and-write.
package newfs

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hammer2fs/go-hammer2/internal/checksum"
	"github.com/hammer2fs/go-hammer2/internal/interfaces"
	"github.com/hammer2fs/go-hammer2/internal/types"
)

// mirrorTidInit is the transaction identifier every record newfs writes
// carries.
const mirrorTidInit types.Tid = 16

// allocStartInum is the first inode number available for files created
// later; each root inode records it as its pfs_inum.
const allocStartInum = 16

// superRootInum and rootInum are the fixed inode numbers newfs assigns;
// real inode allocation for files created later starts at allocStartInum.
const (
	superRootInum = 0
	rootInum      = 1
)

// Config holds the newfs flags from spec.md §6.2.
type Config struct {
	BootSize uint64 // -b, 0 means "use the minimum"
	AuxSize  uint64 // -r, 0 means "use the minimum"
	Version  uint32 // -V, 0 means "use the default"
	// Labels are the -L values in the order given. A single entry "none"
	// means "no extra labels" (only the implicit LOCAL is created). A nil
	// or empty slice means "no -L given": the default label is chosen
	// from the device path's last character.
	Labels []string
}

const defaultVersion uint32 = 1

// LabelResult records the identity newfs assigned to one root.
type LabelResult struct {
	Name string
	Clid types.UUID
	Fsid types.UUID
}

// Result is everything newfs printed per spec.md §6.2's stdout contract.
type Result struct {
	Version      uint32
	TotalSize    uint64
	BootSize     uint64
	AuxSize      uint64
	ReservedSize uint64
	FreeSpace    uint64

	VolumeFsid    types.UUID
	SuperRootClid types.UUID
	SuperRootFsid types.UUID
	Labels        []LabelResult
}

// Run formats dev (already opened read-write, sized to the target device or
// regular file) as a fresh HAMMER2 volume.
func Run(dev interfaces.BlockDevice, devicePath string, cfg Config) (*Result, error) {
	total := alignDown(uint64(dev.Size()), types.VolumeAlign)
	if total == 0 {
		return nil, fmt.Errorf("device is smaller than one %d-byte alignment unit", types.VolumeAlign)
	}

	reserved := reservedSize(total)

	bootSize, err := clampRegion("boot", cfg.BootSize, types.BootMin, types.BootMax)
	if err != nil {
		return nil, err
	}
	auxSize, err := clampRegion("aux", cfg.AuxSize, types.AuxMin, types.AuxMax)
	if err != nil {
		return nil, err
	}

	if reserved+bootSize+auxSize > total {
		return nil, fmt.Errorf("reserved (%d) + boot (%d) + aux (%d) exceeds total size (%d)", reserved, bootSize, auxSize, total)
	}
	freeSpace := total - reserved - bootSize - auxSize

	labels := resolveLabels(cfg.Labels, devicePath)
	if len(labels) > types.SetCountLabels {
		return nil, fmt.Errorf("too many labels: %d (max %d including implicit LOCAL)", len(labels), types.SetCountLabels)
	}
	for _, l := range labels {
		if len(l) > types.InodeMaxName {
			return nil, fmt.Errorf("label %q exceeds max name length %d", l, types.InodeMaxName)
		}
	}

	version := cfg.Version
	if version == 0 {
		version = defaultVersion
	}

	if err := zeroReservedSegment(dev); err != nil {
		return nil, err
	}
	if err := forceExtend(dev, total); err != nil {
		return nil, err
	}

	bootBeg := uint64(types.ZoneSeg)
	bootBeg = alignUp(bootBeg, types.NewfsAlign)
	bootEnd := bootBeg + bootSize
	auxBeg := alignUp(bootEnd, types.NewfsAlign)
	auxEnd := auxBeg + auxSize
	allocBase := alignUp(auxEnd, types.NewfsAlign)

	res := &Result{
		Version:      version,
		TotalSize:    total,
		BootSize:     bootSize,
		AuxSize:      auxSize,
		ReservedSize: reserved,
		FreeSpace:    freeSpace,
	}

	rootBrefs := make([]types.BlockRefT, 0, len(labels))
	for i, label := range labels {
		node, clid, fsid := buildRootInode(label)
		slot := i + 1 // slot 0 is reserved for the super-root
		if err := writeInode(dev, allocBase, slot, node); err != nil {
			return nil, err
		}
		bref := buildInodeBlockref(node, node.NameKey, allocBase, slot, types.CompNone)
		rootBrefs = append(rootBrefs, bref)
		res.Labels = append(res.Labels, LabelResult{Name: label, Clid: clid, Fsid: fsid})
	}
	sortBlockrefsByKey(rootBrefs)

	var suprootSet [types.SetCount]types.BlockRefT
	copy(suprootSet[:], rootBrefs)

	suproot := buildSuperRootInode(suprootSet)
	if err := writeInode(dev, allocBase, 0, suproot); err != nil {
		return nil, err
	}
	superRootBref := buildInodeBlockref(suproot, 0, allocBase, 0, types.CompAutozero)

	volumeFsid := newUUID()
	res.VolumeFsid = volumeFsid
	res.SuperRootClid = suproot.PfsClid
	res.SuperRootFsid = suproot.PfsFsid

	vh := &types.VolumeHeaderT{
		Magic:         types.VolumeMagicHbo,
		BootBeg:       bootBeg,
		BootEnd:       bootEnd,
		AuxBeg:        auxBeg,
		AuxEnd:        auxEnd,
		VoluSize:      total,
		Version:       version,
		Fsid:          volumeFsid,
		Fstype:        types.HammerUUID,
		AllocatorSize: freeSpace,
		AllocatorFree: freeSpace,
		AllocatorBeg:  allocBase + types.PBufSize,
		MirrorTid:     mirrorTidInit,
		FreemapTid:    mirrorTidInit,
		InodeTid:      mirrorTidInit,
	}
	vh.SrootBlockset[0] = superRootBref

	raw := types.EncodeVolumeHeader(vh)
	checksum.RecomputeVolumeCrcs(raw)

	for i := 0; i < types.MaxVolHdrs; i++ {
		off := types.VolumeHeaderOffset(i)
		if uint64(off)+types.VolumeBytes > total {
			break
		}
		if err := dev.WriteAt(off, raw); err != nil {
			return nil, fmt.Errorf("write header replica %d: %w", i, err)
		}
	}

	return res, nil
}

func alignDown(v, align uint64) uint64 { return v - v%align }
func alignUp(v, align uint64) uint64 {
	if v%align == 0 {
		return v
	}
	return v + (align - v%align)
}

// reservedSize computes 4 MiB per 1 GiB of volume, rounded up.
func reservedSize(total uint64) uint64 {
	const gib = 1 << 30
	zones := (total + gib - 1) / gib
	return zones * types.ZoneSeg
}

// clampRegion raises a requested region size to its minimum and rejects
// anything above its maximum, rounding up to NewfsAlign.
func clampRegion(name string, requested, min, max uint64) (uint64, error) {
	v := alignUp(requested, types.NewfsAlign)
	if v < min {
		v = min
	}
	if v > max {
		return 0, fmt.Errorf("%s size %d exceeds maximum %d", name, v, max)
	}
	return v, nil
}

// resolveLabels applies the -L defaulting rule from spec.md §4.5.3: LOCAL
// is always prepended; "none" suppresses every other label; an empty list
// falls back to a single label chosen by the device path's last character.
func resolveLabels(requested []string, devicePath string) []string {
	if len(requested) == 1 && strings.EqualFold(requested[0], "none") {
		return []string{"LOCAL"}
	}
	if len(requested) == 0 {
		return []string{"LOCAL", defaultLabel(devicePath)}
	}
	out := make([]string, 0, len(requested)+1)
	out = append(out, "LOCAL")
	out = append(out, requested...)
	return out
}

func defaultLabel(devicePath string) string {
	if devicePath == "" {
		return "DATA"
	}
	switch devicePath[len(devicePath)-1] {
	case 'a':
		return "BOOT"
	case 'd':
		return "ROOT"
	default:
		return "DATA"
	}
}

func newUUID() types.UUID {
	var out types.UUID
	id := uuid.New()
	copy(out[:], id[:])
	return out
}

// buildRootInode constructs one label's root directory inode per spec.md
// §4.5.3 step 6.
func buildRootInode(label string) (*types.InodeT, types.UUID, types.UUID) {
	now := uint64(time.Now().UnixMicro())
	clid := newUUID()
	fsid := newUUID()

	n := &types.InodeT{
		Version:   1,
		Mode:      0755,
		Type:      types.ObjtypeDirectory,
		OpFlags:   types.OpflagPfsroot,
		Inum:      rootInum,
		Nlinks:    1,
		PfsClid:   clid,
		PfsFsid:   fsid,
		PfsType:   types.PfstypeMaster,
		PfsInum:   allocStartInum,
		CheckAlgo: types.CheckXxhash64,
		Ctime:     now,
		Mtime:     now,
		Atime:     now,
		Btime:     now,
	}
	if strings.EqualFold(label, "BOOT") {
		n.CompAlgo = types.CompAutozero
	} else {
		n.CompAlgo = types.CompLz4
	}
	n.SetName(label)
	n.NameKey = checksum.Dirhash(label)
	return n, clid, fsid
}

// buildSuperRootInode constructs the suproot inode per spec.md §4.5.3
// step 9, embedding the already-sorted label blockset.
func buildSuperRootInode(set [types.SetCount]types.BlockRefT) *types.InodeT {
	now := uint64(time.Now().UnixMicro())
	n := &types.InodeT{
		Version:   1,
		Mode:      0700,
		Type:      types.ObjtypeDirectory,
		Inum:      superRootInum,
		Nlinks:    2,
		PfsType:   types.PfstypeSuproot,
		PfsInum:   0,
		CompAlgo:  types.CompAutozero,
		CheckAlgo: types.CheckXxhash64,
		Ctime:     now,
		Mtime:     now,
		Atime:     now,
		Btime:     now,
	}
	n.SetName("SUPROOT")
	n.NameKey = 0
	n.SetBlockset(set)
	return n
}

// inodeRadix is the allocation radix of a single 1024-byte inode slot.
const inodeRadix = 10 // 1 << 10 == types.InodeBytes

// buildInodeBlockref computes the blockref spec.md §4.5.3 steps 7 and 10
// describe: key = name_key (0 for the super-root), ENC_CHECK(XXHASH64),
// mirror_tid = 16, XXH64(inode, 1024, SEED) as the check value, and
// data_off pointing at this inode's slot (base + slot*InodeBytes). Flags
// carries BrefFlagPfsroot when the inode itself is a PFS root. comp is the
// blockref's own compression nibble, which is independent of the inode's
// comp_algo field: NONE for the root blockrefs, AUTOZERO for the
// super-root's.
func buildInodeBlockref(node *types.InodeT, key, base uint64, slot int, comp uint8) types.BlockRefT {
	encoded := types.EncodeInode(node)
	var bref types.BlockRefT
	bref.Type = types.BrefTypeInode
	bref.Copyid = types.CopyidLocal
	bref.Key = key
	bref.MirrorTid = mirrorTidInit
	if node.IsPfsRoot() {
		bref.Flags = types.BrefFlagPfsroot
	}
	bref.SetMethods(types.CheckXxhash64, comp)
	bref.SetDataOff(base+uint64(slot)*types.InodeBytes, inodeRadix)
	v := checksum.Xxhash64(encoded, types.XxhSeed)
	bref.SetXxhash64Value(v)
	return bref
}

// sortBlockrefsByKey sorts root blockrefs ascending by Key, matching the
// invariant spec.md §3 documents for sroot_blockset.
func sortBlockrefsByKey(brefs []types.BlockRefT) {
	for i := 1; i < len(brefs); i++ {
		for j := i; j > 0 && brefs[j-1].Key > brefs[j].Key; j-- {
			brefs[j-1], brefs[j] = brefs[j], brefs[j-1]
		}
	}
}

// writeInode writes node into its slot (slot 0 is the super-root; slots
// 1..N are the root inodes in allocation order) of the single 64 KiB block
// all of newfs's inodes share, at base.
func writeInode(dev interfaces.BlockDevice, base uint64, slot int, node *types.InodeT) error {
	offset := int64(base) + int64(slot)*types.InodeBytes
	return dev.WriteAt(offset, types.EncodeInode(node))
}

// zeroReservedSegment zeroes the first zone-segment's 64 KiB blocks, per
// spec.md §4.5.3 step 4.
func zeroReservedSegment(dev interfaces.BlockDevice) error {
	zero := make([]byte, types.PBufSize)
	for off := int64(0); off < types.ZoneSeg; off += types.PBufSize {
		if err := dev.WriteAt(off, zero); err != nil {
			return fmt.Errorf("zero reserved segment at %d: %w", off, err)
		}
	}
	return nil
}

// forceExtend writes one zero block at total-PBUFSIZE, extending a sparse
// regular file to its full target size.
func forceExtend(dev interfaces.BlockDevice, total uint64) error {
	zero := make([]byte, types.PBufSize)
	off := int64(total) - types.PBufSize
	if off < 0 {
		return fmt.Errorf("total size %d is smaller than one I/O block", total)
	}
	return dev.WriteAt(off, zero)
}
