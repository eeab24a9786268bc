package reconstruct_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hammer2fs/go-hammer2/internal/device"
	"github.com/hammer2fs/go-hammer2/internal/managers/fsck"
	"github.com/hammer2fs/go-hammer2/internal/managers/newfs"
	"github.com/hammer2fs/go-hammer2/internal/managers/reconstruct"
	"github.com/hammer2fs/go-hammer2/internal/types"
)

func freshImage(t *testing.T, labels []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "img")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(200*1024*1024))
	f.Close()

	dev, err := device.Open(path, false)
	require.NoError(t, err)
	defer dev.Close()
	_, err = newfs.Run(dev, path, newfs.Config{Labels: labels})
	require.NoError(t, err)
	return path
}

// corruptRootInodeCheck flips a byte in the first root inode's filename
// (leaving its blockref's recorded check-code stale) without touching the
// blockref itself, simulating a drifted checksum on otherwise-intact data.
func corruptRootInodeCheck(t *testing.T, path string) *types.BlockRefT {
	t.Helper()
	dev, err := device.Open(path, false)
	require.NoError(t, err)
	defer dev.Close()

	raw, err := dev.ReadAt(types.VolumeHeaderOffset(0), types.VolumeBytes)
	require.NoError(t, err)
	vh, err := types.DecodeVolumeHeader(raw)
	require.NoError(t, err)
	suproot, err := dev.ReadMedia(&vh.SrootBlockset[0])
	require.NoError(t, err)
	suprootNode, err := types.DecodeInode(suproot)
	require.NoError(t, err)
	set, err := suprootNode.Blockset()
	require.NoError(t, err)

	var target *types.BlockRefT
	for i := range set {
		if !set[i].IsEmpty() {
			target = &set[i]
			break
		}
	}
	require.NotNil(t, target, "no root inode found in super-root blockset")

	off := int64(target.IoOffset()) + 260 // inside Filename, which starts at byte 256
	b, err := dev.ReadAt(off, 1)
	require.NoError(t, err)
	b[0] ^= 0xFF
	require.NoError(t, dev.WriteAt(off, b))
	return target
}

// TestReconstructFixesDriftedChecksum exercises the "reconstruct is a fixed
// point of fsck" property: a subsequent fsck after `reconstruct -f` must
// report zero errors.
func TestReconstructFixesDriftedChecksum(t *testing.T) {
	path := freshImage(t, []string{"ROOT"})
	corruptRootInodeCheck(t, path)

	dev, err := device.Open(path, false)
	require.NoError(t, err)

	preRes, err := fsck.Run(dev, fsck.Config{})
	require.NoError(t, err)
	require.False(t, preRes.Clean(), "expected the tampered image to fail fsck before reconstruct")

	rres, err := reconstruct.Run(dev, reconstruct.Config{Force: true})
	require.NoError(t, err)
	require.False(t, rres.Clean(), "expected reconstruct to report at least one change")
	require.True(t, rres.Replicas[0].HeaderWrote, "expected replica 0's header to be rewritten")
	dev.Close()

	roDev, err := device.Open(path, true)
	require.NoError(t, err)
	defer roDev.Close()

	postRes, err := fsck.Run(roDev, fsck.Config{})
	require.NoError(t, err)
	if !postRes.Clean() {
		for _, r := range postRes.Replicas {
			t.Logf("replica %d diags: volume=%v freemap=%v", r.Index, r.VolumeDiags, r.FreemapDiags)
		}
	}
	require.True(t, postRes.Clean(), "fsck still reports errors after reconstruct -f")
}

// TestReconstructIdempotent exercises the "reconstruct idempotence"
// testable property: running reconstruct -f twice in a row, the second run
// issues zero writes.
func TestReconstructIdempotent(t *testing.T) {
	path := freshImage(t, []string{"ROOT", "DATA"})
	corruptRootInodeCheck(t, path)

	dev, err := device.Open(path, false)
	require.NoError(t, err)
	defer dev.Close()

	first, err := reconstruct.Run(dev, reconstruct.Config{Force: true})
	require.NoError(t, err)
	require.False(t, first.Clean(), "expected the first reconstruct run to report a change")

	second, err := reconstruct.Run(dev, reconstruct.Config{Force: true})
	require.NoError(t, err)
	require.True(t, second.Clean(), "second reconstruct -f run reported changes")
	for _, r := range second.Replicas {
		require.False(t, r.HeaderWrote, "second reconstruct -f run rewrote replica %d's header", r.Index)
	}
}

// TestReconstructDryRunMakesNoChanges confirms that without -f, reconstruct
// only reports and never writes.
func TestReconstructDryRunMakesNoChanges(t *testing.T) {
	path := freshImage(t, []string{"ROOT"})
	corruptRootInodeCheck(t, path)

	dev, err := device.Open(path, true)
	require.NoError(t, err)
	defer dev.Close()

	res, err := reconstruct.Run(dev, reconstruct.Config{Force: false})
	require.NoError(t, err)
	require.False(t, res.Clean(), "expected dry run to report the drifted checksum")
	for _, r := range res.Replicas {
		require.False(t, r.HeaderWrote, "dry run must not write the header")
		for _, c := range r.Changes {
			require.False(t, c.Applied, "dry run must not apply any change")
		}
	}
}
