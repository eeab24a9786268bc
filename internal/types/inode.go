package types

import "encoding/binary"

// InodeT is the 1024-byte on-disk inode. Its trailing 512-byte union holds
// either a blockset of 8 direct children, or embedded file data when
// OpFlags has OpflagDirectdata set.
type InodeT struct {
	Version  uint16
	Uid      uint32
	Gid      uint32
	Mode     uint32
	Type     uint8 // one of the Objtype* constants
	OpFlags  uint8 // OpflagDirectdata | OpflagPfsroot
	CompAlgo uint8
	CheckAlgo uint8
	NameLen  uint16

	Inum   uint64
	Size   uint64
	Nlinks uint64

	// NameKey is the directory-hash key this inode is filed under in its
	// parent directory.
	NameKey uint64

	Ctime uint64
	Mtime uint64
	Atime uint64
	Btime uint64

	PfsClid UUID
	PfsFsid UUID
	PfsType uint8
	PfsInum uint64

	QuotaReserved uint64
	QuotaUsed     uint64

	// Filename holds the first NameLen bytes of the entry's name.
	Filename [InodeMaxName]byte

	// U is the trailing union: either [SetCount]BlockRefT (512 bytes) or
	// raw embedded data, chosen by OpflagDirectdata.
	U [512]byte
}

// IsDirectData reports whether U holds embedded data rather than a
// blockset.
func (n *InodeT) IsDirectData() bool {
	return n.OpFlags&OpflagDirectdata != 0
}

// IsPfsRoot reports whether this inode is itself a PFS entry point.
func (n *InodeT) IsPfsRoot() bool {
	return n.OpFlags&OpflagPfsroot != 0
}

// Blockset decodes U as a blockset. Only valid when !IsDirectData().
func (n *InodeT) Blockset() ([SetCount]BlockRefT, error) {
	return DecodeBlockSet(n.U[:])
}

// SetBlockset encodes a blockset into U and clears OpflagDirectdata.
func (n *InodeT) SetBlockset(set [SetCount]BlockRefT) {
	copy(n.U[:], EncodeBlockSet(set))
	n.OpFlags &^= OpflagDirectdata
}

// Name returns the inode's name as a string, trimmed to NameLen.
func (n *InodeT) Name() string {
	l := int(n.NameLen)
	if l > len(n.Filename) {
		l = len(n.Filename)
	}
	return string(n.Filename[:l])
}

// SetName stores name in Filename and sets NameLen. It returns false if
// name is longer than InodeMaxName.
func (n *InodeT) SetName(name string) bool {
	if len(name) > InodeMaxName {
		return false
	}
	var buf [InodeMaxName]byte
	copy(buf[:], name)
	n.Filename = buf
	n.NameLen = uint16(len(name))
	return true
}

// EncodeInode serializes an inode to its 1024-byte on-disk form.
func EncodeInode(n *InodeT) []byte {
	buf := make([]byte, InodeBytes)
	le := binary.LittleEndian
	le.PutUint16(buf[0:2], n.Version)
	le.PutUint32(buf[4:8], n.Uid)
	le.PutUint32(buf[8:12], n.Gid)
	le.PutUint32(buf[12:16], n.Mode)
	buf[16] = n.Type
	buf[17] = n.OpFlags
	buf[18] = n.CompAlgo
	buf[19] = n.CheckAlgo
	le.PutUint16(buf[20:22], n.NameLen)
	le.PutUint64(buf[24:32], n.Inum)
	le.PutUint64(buf[32:40], n.Size)
	le.PutUint64(buf[40:48], n.Nlinks)
	le.PutUint64(buf[48:56], n.NameKey)
	le.PutUint64(buf[56:64], n.Ctime)
	le.PutUint64(buf[64:72], n.Mtime)
	le.PutUint64(buf[72:80], n.Atime)
	le.PutUint64(buf[80:88], n.Btime)
	copy(buf[88:104], n.PfsClid[:])
	copy(buf[104:120], n.PfsFsid[:])
	buf[120] = n.PfsType
	le.PutUint64(buf[128:136], n.PfsInum)
	le.PutUint64(buf[136:144], n.QuotaReserved)
	le.PutUint64(buf[144:152], n.QuotaUsed)
	copy(buf[256:512], n.Filename[:])
	copy(buf[512:1024], n.U[:])
	return buf
}

// DecodeInode parses a 1024-byte on-disk inode.
func DecodeInode(data []byte) (*InodeT, error) {
	if len(data) < InodeBytes {
		return nil, ErrShortBuffer("inode", InodeBytes, len(data))
	}
	le := binary.LittleEndian
	n := &InodeT{
		Version:   le.Uint16(data[0:2]),
		Uid:       le.Uint32(data[4:8]),
		Gid:       le.Uint32(data[8:12]),
		Mode:      le.Uint32(data[12:16]),
		Type:      data[16],
		OpFlags:   data[17],
		CompAlgo:  data[18],
		CheckAlgo: data[19],
		NameLen:   le.Uint16(data[20:22]),
	}
	n.Inum = le.Uint64(data[24:32])
	n.Size = le.Uint64(data[32:40])
	n.Nlinks = le.Uint64(data[40:48])
	n.NameKey = le.Uint64(data[48:56])
	n.Ctime = le.Uint64(data[56:64])
	n.Mtime = le.Uint64(data[64:72])
	n.Atime = le.Uint64(data[72:80])
	n.Btime = le.Uint64(data[80:88])
	copy(n.PfsClid[:], data[88:104])
	copy(n.PfsFsid[:], data[104:120])
	n.PfsType = data[120]
	n.PfsInum = le.Uint64(data[128:136])
	n.QuotaReserved = le.Uint64(data[136:144])
	n.QuotaUsed = le.Uint64(data[144:152])
	copy(n.Filename[:], data[256:512])
	copy(n.U[:], data[512:1024])
	return n, nil
}
