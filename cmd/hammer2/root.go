// Package main is the hammer2 command-line front end: newfs, fsck, and
// reconstruct wired onto the internal/managers drivers. It is grounded on
// the teacher's cmd/root.go (package-level persistent flags registered in
// init(), a rootCmd with Version, stderr-printing Execute()), extended with
// viper config-file loading the way pkg/vconvert/config.go in the example
// pack does it. The config supplies two defaults: newfs's -V version
// (newfs.version) and fsck's progress-line width fallback (columns).
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hammer2fs/go-hammer2/internal/device"
	"github.com/hammer2fs/go-hammer2/pkg/app"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
	cfgFile      string
)

var rootCmd = &cobra.Command{
	Use:   "hammer2",
	Short: "Format, verify, and repair HAMMER2 filesystem images",
	Long: `hammer2 is a command-line tool that builds, verifies, and repairs
HAMMER2 on-disk volumes directly against a raw device or regular file,
without mounting.

Commands:
  newfs         Format a device as a fresh HAMMER2 volume
  fsck          Verify a volume's topology and checksums
  reconstruct   Recompute and rewrite checksums in a possibly-corrupt volume`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var cerr *app.CommonError
		if errors.As(err, &cerr) {
			fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", cerr.Code, err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.hammer2/config.yaml)")
}

// initConfig reads a config file and HAMMER2_-prefixed environment
// variables, the way vconvert's initConfig resolves a user config with
// built-in fallbacks.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".hammer2"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	viper.SetEnvPrefix("HAMMER2")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

// appContext carries the persistent flags as the shared app.Context the
// subcommands' helper functions read from, instead of reading the
// package-level flag vars directly.
func appContext() *app.Context {
	ctx := app.NewContext()
	ctx.Verbose = verbose
	ctx.Quiet = quiet
	ctx.OutputFormat = outputFormat
	return ctx
}

// GetVerbose returns the verbose flag value.
func GetVerbose() bool { return appContext().Verbose }

// GetQuiet returns the quiet flag value.
func GetQuiet() bool { return appContext().Quiet }

// GetOutputFormat returns the output format.
func GetOutputFormat() string { return appContext().OutputFormat }

// openDevice opens path the way every subcommand does, translating the
// two failures a user can actually act on -- a typo'd path or a permission
// problem -- into the app.CommonError codes a caller's RunE can surface
// without another os.IsNotExist/os.IsPermission check of its own, matching
// the teacher's pkg/app/discover/validator.go pattern of reporting CLI
// input failures through app.NewError.
func openDevice(path string, readOnly bool) (*device.Volume, error) {
	dev, err := device.Open(path, readOnly)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return nil, app.NewError(app.ErrCodeVolumeNotFound, fmt.Sprintf("device %s not found", path), err)
		case os.IsPermission(err):
			return nil, app.NewError(app.ErrCodePermission, fmt.Sprintf("permission denied opening %s", path), err)
		default:
			return nil, err
		}
	}
	return dev, nil
}

func main() {
	Execute()
}
