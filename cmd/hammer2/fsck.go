package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hammer2fs/go-hammer2/internal/managers/fsck"
	"github.com/hammer2fs/go-hammer2/pkg/app"
)

var (
	fsckForce      bool
	fsckVerbCount  int
	fsckQuietCount int
	fsckCountEmpty bool
	fsckBestOnly   bool
	fsckScanPFS    bool
	fsckPfsNames   string
)

var fsckCmd = &cobra.Command{
	Use:   "fsck [-f] [-v] [-q] [-e] [-b] [-p] [-l pfs_name[,pfs_name...]] device",
	Short: "Verify a HAMMER2 volume's topology and checksums",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFsck(args[0])
	},
}

func init() {
	rootCmd.AddCommand(fsckCmd)

	fsckCmd.Flags().BoolVarP(&fsckForce, "force", "f", false, "continue past errors, recursing into failed subtrees")
	fsckCmd.Flags().CountVarP(&fsckVerbCount, "verbose", "v", "raise verbosity (stackable)")
	fsckCmd.Flags().CountVarP(&fsckQuietCount, "quiet", "q", "lower verbosity (stackable)")
	fsckCmd.Flags().BoolVarP(&fsckCountEmpty, "count-empty", "e", false, "count empty blockrefs in stats")
	fsckCmd.Flags().BoolVarP(&fsckBestOnly, "best", "b", false, "restrict to the replica with the highest mirror_tid")
	fsckCmd.Flags().BoolVarP(&fsckScanPFS, "pfs", "p", false, "enumerate PFS roots and verify each separately")
	fsckCmd.Flags().StringVarP(&fsckPfsNames, "pfs-names", "l", "", "restrict -p to a comma-separated list of PFS names")
}

func runFsck(devicePath string) error {
	dev, err := openDevice(devicePath, true)
	if err != nil {
		return err
	}
	defer dev.Close()

	// -v and -q stack and cancel each other, per spec.md §6.2.
	level := fsckVerbCount - fsckQuietCount

	var names []string
	if fsckPfsNames != "" {
		names = strings.Split(fsckPfsNames, ",")
	}

	selector := app.PfsSelector{ScanPFS: fsckScanPFS, Names: names}
	if err := selector.Validate(); err != nil {
		return err
	}

	// ctx.Verbose/Quiet mirror this run's effective -v/-q stacking rather
	// than the persistent flags appContext() otherwise reports, so
	// ctx.Log/ctx.Progress gate on the same level this command already
	// computed above.
	ctx := appContext()
	ctx.Verbose = level > 0
	ctx.Quiet = level < 0

	cfg := fsck.Config{
		Force:      fsckForce,
		Verbose:    level,
		CountEmpty: fsckCountEmpty,
		BestOnly:   fsckBestOnly,
		ScanPFS:    selector.ScanPFS,
		PfsNames:   selector.Names,
	}
	if level >= 0 {
		start := time.Now()
		width := progressWidth()
		ctx.SetProgress(func(message string, percent int) {
			if len(message) > width-1 {
				message = message[:width-1]
			}
			fmt.Fprintf(os.Stdout, "\r%s", message)
		})
		cfg.Progress = func(touched uint64) {
			upd := app.ProgressUpdate{Completed: int64(touched), ElapsedTime: time.Since(start)}
			ctx.Progress(fmt.Sprintf("hammer2 fsck: %s blockrefs scanned (%.0f/s)", humanize.Comma(int64(touched)), upd.Rate()), 0)
		}
	}

	ctx.Log(fmt.Sprintf("hammer2 fsck: scanning %s", selector.String()))

	res, err := fsck.Run(dev, cfg)
	if err != nil {
		return err
	}
	if cfg.Progress != nil {
		fmt.Fprintln(os.Stdout)
	}

	if GetOutputFormat() == "json" {
		printFsckJSON(res)
	} else {
		printFsckResult(res, level)
	}

	if !res.Clean() {
		os.Exit(1)
	}
	return nil
}

// progressWidth resolves the progress line's column budget the way the
// source does: COLUMNS first, the terminal's reported size next, 80 last.
// A "columns" key in the config file overrides the final fallback.
func progressWidth() int {
	if env := os.Getenv("COLUMNS"); env != "" {
		if n, err := strconv.Atoi(env); err == nil && n > 0 {
			return n
		}
	}
	if n := terminalWidth(); n > 0 {
		return n
	}
	if n := viper.GetInt("columns"); n > 0 {
		return n
	}
	return 80
}

func printFsckResult(res *fsck.Result, level int) {
	for _, r := range res.Replicas {
		if level >= 0 {
			fmt.Printf("replica %d:", r.Index)
			if r.BadMagic {
				fmt.Printf(" bad-magic")
			}
			if r.Reversed {
				fmt.Printf(" reverse-endian")
			}
			if r.Sect0Err != nil {
				fmt.Printf(" sect0-crc-mismatch")
			}
			if r.Sect1Err != nil {
				fmt.Printf(" sect1-crc-mismatch")
			}
			if r.WholeErr != nil {
				fmt.Printf(" whole-crc-mismatch")
			}
			fmt.Println()

			printStats("  freemap", r.Freemap)
		}
		for _, d := range r.FreemapDiags {
			printDiagnostic(d)
		}
		if len(r.Pfs) == 0 {
			if level >= 0 {
				printStats("  volume", r.Volume)
			}
			for _, d := range r.VolumeDiags {
				printDiagnostic(d)
			}
			continue
		}
		for _, p := range r.Pfs {
			if level >= 0 {
				printStats("  pfs "+p.Name, p.Volume)
			}
			for _, d := range p.Diagnostics {
				printDiagnostic(d)
			}
		}
		for _, name := range r.MissingPfsNames {
			fmt.Fprintf(os.Stderr, "  pfs %s: not found\n", name)
		}
	}
	if level > 0 {
		fmt.Printf("clean: %v\n", res.Clean())
	}
}

func printStats(label string, s fsck.Stats) {
	fmt.Printf("%s: %d blockref (%d inode, %d indirect, %d data, %d dirent, %d freemap_node, %d freemap_leaf), %d empty, %d invalid, %s bytes\n",
		label, s.TotalBlockref, s.Inode, s.Indirect, s.Data, s.Dirent, s.FreemapNode, s.FreemapLeaf,
		s.TotalEmpty, s.TotalInvalid, humanize.Bytes(s.TotalBytes))
}

// Diagnostics go to stderr; stats and progress go to stdout.
func printDiagnostic(d fsck.Diagnostic) {
	fmt.Fprintf(os.Stderr, "    mismatch: depth=%d parent_type=%d child_index=%d data_off=0x%s methods=0x%02x type=%d reason=%s\n",
		d.Depth, d.ParentType, d.ChildIndex, strconv.FormatUint(d.DataOff, 16), d.Methods, d.Type, d.Reason)
}

// jsonReplica is the serializable view of one replica's result for
// --output json; the error fields flatten to booleans.
type jsonReplica struct {
	Index        int               `json:"index"`
	BadMagic     bool              `json:"bad_magic"`
	Reversed     bool              `json:"reverse_endian"`
	Sect0CrcOk   bool              `json:"sect0_crc_ok"`
	Sect1CrcOk   bool              `json:"sect1_crc_ok"`
	WholeCrcOk   bool              `json:"whole_crc_ok"`
	Freemap      fsck.Stats        `json:"freemap"`
	FreemapDiags []fsck.Diagnostic `json:"freemap_diagnostics,omitempty"`
	Volume       fsck.Stats        `json:"volume"`
	VolumeDiags  []fsck.Diagnostic `json:"volume_diagnostics,omitempty"`
	Pfs          []jsonPfs         `json:"pfs,omitempty"`
	MissingPfs   []string          `json:"missing_pfs,omitempty"`
}

type jsonPfs struct {
	Name        string            `json:"name"`
	Volume      fsck.Stats        `json:"volume"`
	Diagnostics []fsck.Diagnostic `json:"diagnostics,omitempty"`
}

func printFsckJSON(res *fsck.Result) {
	out := struct {
		Clean    bool          `json:"clean"`
		Replicas []jsonReplica `json:"replicas"`
	}{Clean: res.Clean()}
	for _, r := range res.Replicas {
		jr := jsonReplica{
			Index:        r.Index,
			BadMagic:     r.BadMagic,
			Reversed:     r.Reversed,
			Sect0CrcOk:   r.Sect0Err == nil,
			Sect1CrcOk:   r.Sect1Err == nil,
			WholeCrcOk:   r.WholeErr == nil,
			Freemap:      r.Freemap,
			FreemapDiags: r.FreemapDiags,
			Volume:       r.Volume,
			VolumeDiags:  r.VolumeDiags,
			MissingPfs:   r.MissingPfsNames,
		}
		for _, p := range r.Pfs {
			jr.Pfs = append(jr.Pfs, jsonPfs{Name: p.Name, Volume: p.Volume, Diagnostics: p.Diagnostics})
		}
		out.Replicas = append(out.Replicas, jr)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
