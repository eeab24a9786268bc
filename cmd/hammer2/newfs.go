package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hammer2fs/go-hammer2/internal/managers/newfs"
)

var (
	newfsBootSize uint64
	newfsAuxSize  uint64
	newfsVersion  uint32
	newfsLabels   []string
)

var newfsCmd = &cobra.Command{
	Use:   "newfs [-b bootsize] [-r auxsize] [-V version] [-L label]... device",
	Short: "Format a device as a fresh HAMMER2 volume",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNewfs(args[0])
	},
}

func init() {
	rootCmd.AddCommand(newfsCmd)

	newfsCmd.Flags().Uint64VarP(&newfsBootSize, "bootsize", "b", 0, "boot area size in bytes")
	newfsCmd.Flags().Uint64VarP(&newfsAuxSize, "auxsize", "r", 0, "aux area size in bytes")
	newfsCmd.Flags().Uint32VarP(&newfsVersion, "version", "V", 0, "HAMMER2 on-disk version")
	newfsCmd.Flags().StringArrayVarP(&newfsLabels, "label", "L", nil, "PFS label to create (repeatable, up to 7; \"none\" suppresses all but LOCAL)")
}

func runNewfs(devicePath string) error {
	dev, err := openDevice(devicePath, false)
	if err != nil {
		return err
	}
	defer dev.Close()

	cfg := newfs.Config{
		BootSize: newfsBootSize,
		AuxSize:  newfsAuxSize,
		Version:  newfsVersion,
		Labels:   newfsLabels,
	}
	// A "newfs.version" key in the config file (or HAMMER2_NEWFS_VERSION in
	// the environment) supplies the default when -V is not given.
	if cfg.Version == 0 {
		cfg.Version = viper.GetUint32("newfs.version")
	}

	res, err := newfs.Run(dev, devicePath, cfg)
	if err != nil {
		return err
	}

	printNewfsResult(res)
	return nil
}

func printNewfsResult(res *newfs.Result) {
	if GetQuiet() {
		return
	}
	fmt.Printf("version: %d\n", res.Version)
	fmt.Printf("total-size: %d\n", res.TotalSize)
	fmt.Printf("boot-size: %d\n", res.BootSize)
	fmt.Printf("aux-size: %d\n", res.AuxSize)
	fmt.Printf("reserved-size: %d\n", res.ReservedSize)
	fmt.Printf("free-space: %d\n", res.FreeSpace)
	fmt.Printf("volume-fsid: %s\n", formatUUID(res.VolumeFsid))
	fmt.Printf("super-root-clid: %s\n", formatUUID(res.SuperRootClid))
	fmt.Printf("super-root-fsid: %s\n", formatUUID(res.SuperRootFsid))
	for _, l := range res.Labels {
		fmt.Printf("label %s: clid=%s fsid=%s\n", l.Name, formatUUID(l.Clid), formatUUID(l.Fsid))
	}
}
