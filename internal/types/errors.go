package types

import "fmt"

// FormatError reports a violation of the on-disk format: a bad magic
// number, an unrecognized blockref type, a radix outside its allowed
// bounds, or an unsupported inode version.
type FormatError struct {
	Kind    string // "BadMagic", "UnknownBrefType", "BadRadix", "BadInodeVersion"
	Detail  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// ErrBadMagic reports a volume header whose magic is neither the host-order
// nor the reversed-order HAMMER2 magic.
func ErrBadMagic(got uint64) error {
	return &FormatError{Kind: "BadMagic", Detail: fmt.Sprintf("got 0x%016X", got)}
}

// ErrUnknownBrefType reports a blockref whose Type the walker does not
// recognize.
func ErrUnknownBrefType(t uint8) error {
	return &FormatError{Kind: "UnknownBrefType", Detail: fmt.Sprintf("type %d", t)}
}

// ErrBadRadix reports a radix outside [RadixMin, RadixMax], or otherwise
// malformed (not a power of two where one is required).
func ErrBadRadix(radix uint8) error {
	return &FormatError{Kind: "BadRadix", Detail: fmt.Sprintf("radix %d", radix)}
}

// ErrBadInodeVersion reports an inode whose Version field this tool does
// not understand.
func ErrBadInodeVersion(version uint16) error {
	return &FormatError{Kind: "BadInodeVersion", Detail: fmt.Sprintf("version %d", version)}
}

// ErrShortBuffer reports that a decode call received fewer bytes than the
// record it was asked to parse requires.
func ErrShortBuffer(what string, want, got int) error {
	return fmt.Errorf("%s: short buffer: want %d bytes, got %d", what, want, got)
}

// CheckMismatch reports that a blockref's recorded check-code does not
// match the check computed over its referenced media.
type CheckMismatch struct {
	Algo     uint8
	Expected [24]byte
	Actual   [24]byte
}

func (e *CheckMismatch) Error() string {
	return fmt.Sprintf("check mismatch (algo %d): expected %x, got %x", e.Algo, e.Expected, e.Actual)
}

// TopologyError reports an internally inconsistent tree: a blockset-child
// array of the wrong size, or an I/O window exceeding the media union
// size.
type TopologyError struct {
	Detail string
}

func (e *TopologyError) Error() string { return "topology error: " + e.Detail }

// UnsupportedAlgorithmError reports a check-code algorithm reconstruct does
// not rewrite (SHA-192). The offending node is left untouched; this is not
// a fatal error for the run as a whole.
type UnsupportedAlgorithmError struct {
	Algo uint8
}

func (e *UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("unsupported algorithm for reconstruct: %d", e.Algo)
}

// PfsNotFoundError reports that -p -l named a PFS that does not exist in
// the volume's super-root.
type PfsNotFoundError struct {
	Name string
}

func (e *PfsNotFoundError) Error() string {
	return fmt.Sprintf("pfs not found: %q", e.Name)
}
