package types

// Fixed sizes of the on-disk record types. All three are exact; the format
// never pads them implicitly.
const (
	VolumeBytes    = 65536 // size of one volume-header replica
	InodeBytes     = 1024  // size of one on-disk inode
	BlockRefBytes  = 64    // size of one blockref
	SetCount       = 8     // blockrefs per blockset
	MaxVolHdrs     = 4     // volume-header replicas
	MaxCopyInfo    = 256   // copyinfo[] slots in the volume header
	FreemapLeafSz  = 64    // size of one freemap leaf element
	InodeMaxName   = 256   // max bytes in an inode's embedded filename
	SetCountLabels = 8     // max root labels newfs packs into one set, including the implicit LOCAL
)

// Zone geometry. The volume is tiled in ZoneBytes64-sized zones; each zone
// begins with a ZoneSeg reserved segment. Only the first MaxVolHdrs zones
// carry a volume-header replica, at offset 0 of the zone.
const (
	ZoneBytes64 = 1 << 31       // 2 GiB
	ZoneSeg     = 4 * 1024 * 1024 // 4 MiB reserved segment at the start of each zone
	VolumeAlign = 8 * 1024 * 1024 // 8 MiB; total usable size is truncated to this
	NewfsAlign  = VolumeAlign
)

// Radix bounds for blockref data_off's low 6 bits: 1<<radix is the physical
// allocation size of the data the blockref points at.
const (
	RadixMin = 10 // 1 KiB
	RadixMax = 16 // 64 KiB
)

// PBufSize is the largest single I/O the block layer ever issues; LBufSize
// is the alignment granularity of the underlying device.
const (
	LBufSize = 16 * 1024 // 16 KiB
	PBufSize = 64 * 1024 // 64 KiB
)

// Volume-header magic. The second form is the byte-reversed first form; a
// volume whose header reads as the second form was produced on a
// foreign-endian host. go-hammer2 detects this, warns, and continues to
// interpret the header's structural fields in host layout -- it never
// transposes the tree.
const (
	VolumeMagicHbo = 0x48414D3205172011 // "HAM2" Host Byte Order
	VolumeMagicRbo = 0x11201705324D4148 // Reversed Byte Order
)

// BlockRef type values (BlockRefT.Type).
const (
	BrefTypeEmpty       = 0
	BrefTypeInode       = 1
	BrefTypeIndirect    = 2
	BrefTypeData        = 3
	BrefTypeFreemapNode = 5
	BrefTypeFreemapLeaf = 6
	BrefTypeFreemap     = 254 // synthetic root only
	BrefTypeVolume      = 255 // synthetic root only
)

// Check-code algorithms, stored in the high nibble of BlockRefT.Methods.
// HAMMER2's on-disk enumeration names the second algorithm XXHASH64; the
// spec's external-interfaces table calls it "CRC64" in one place, but every
// other section (data model, checksum library, newfs) names it XXH64/
// XXHASH64, so that's the value encoded here.
const (
	CheckNone     = 0
	CheckIscsi32  = 1
	CheckXxhash64 = 2
	CheckSha192   = 3
	CheckFreemap  = 4
)

// Compression algorithms, stored in the low nibble of BlockRefT.Methods.
const (
	CompNone     = 0
	CompAutozero = 1
	CompLz4      = 2
	CompZlib     = 3
)

// InodeVersionOne is the only on-disk inode version this tool understands.
const InodeVersionOne = 1

// Inode object types (InodeT.Type).
const (
	ObjtypeUnknown   = 0x0
	ObjtypeDirectory = 0x1
	ObjtypeRegfile   = 0x2
	ObjtypeFifo      = 0x3
	ObjtypeCdev      = 0x4
	ObjtypeBdev      = 0x5
	ObjtypeSoftlink  = 0x6
	ObjtypeHardlink  = 0x8
	ObjtypeSocket    = 0x9
	ObjtypeWhiteout  = 0xa
)

// Inode operational flags (InodeT.OpFlags).
const (
	OpflagDirectdata = 0x01
	OpflagPfsroot    = 0x02
)

// BlockRefT.Flags bits. newfs sets BrefFlagPfsroot on a PFS root's blockref
// so the PFS-enumeration scan can recognize one without decoding its media.
const BrefFlagPfsroot = 0x02

// PFS types (InodeT.PfsType).
const (
	PfstypeNone       = 0
	PfstypeCache      = 1
	PfstypeCopy       = 2
	PfstypeSlave      = 3
	PfstypeSoftSlave  = 4
	PfstypeSoftMaster = 5
	PfstypeMaster     = 6
	PfstypeEmergPri   = 7
	PfstypeSuproot    = 8
)

// CopyidLocal is the copyid used by a blockref that refers to local media
// (no replication target configured).
const CopyidLocal = 0

// XxhSeed is the fixed HAMMER2 seed for the XXH64 algorithm.
const XxhSeed uint64 = 0xc3a4048bd1d1e4d9

// Newfs boot/aux region bounds, all multiples of NewfsAlign.
const (
	BootMin = 0
	BootMax = 256 * 1024 * 1024
	AuxMin  = 0
	AuxMax  = 256 * 1024 * 1024
)

// DirhashVisible is set in the top bit of a directory-entry name_key when
// the entry should be visible to directory scans.
const DirhashVisible uint64 = 1 << 63
