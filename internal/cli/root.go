// Package cli wires the linker's single cobra command: positional input
// object/archive paths plus the handful of flags spec.md §6 allows.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/halvardk/xld/internal/layoutdump"
	"github.com/halvardk/xld/internal/link"
	"github.com/halvardk/xld/internal/xlog"
)

var (
	outputPath string
	verbose    bool
	dumpLayout string
)

// RootCmd is xld's one and only command; there is no subcommand tree
// because there is only one thing this tool does (spec.md §6).
var RootCmd = &cobra.Command{
	Use:   "xld <input.o|input.a>...",
	Short: "A minimal static linker for ELF64 x86-64 objects",
	Long: `xld links one or more relocatable ELF64 x86-64 objects and archives
into a single static, non-PIE executable.

There is no environment-variable or config-file layer: every tunable is a
flag on this command.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLink,
}

func init() {
	RootCmd.Flags().StringVarP(&outputPath, "output", "o", link.DefaultOutputPath, "output executable path")
	RootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	RootCmd.Flags().StringVar(&dumpLayout, "dump-layout", "", "write the final chunk layout as YAML to this path")
}

// Execute runs the root command and maps a link failure to a non-zero exit
// code, the way main.main is expected to for a CLI tool (spec.md §6).
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runLink(cmd *cobra.Command, args []string) error {
	log, batcher := xlog.New(os.Stderr, verbose)

	cfg := link.NewConfig()
	cfg.OutputPath = outputPath

	result, err := link.Run(cfg, log, batcher, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xld: %v\n", err)
		return err
	}

	if dumpLayout != "" {
		if err := layoutdump.Write(dumpLayout, result); err != nil {
			fmt.Fprintf(os.Stderr, "xld: writing layout dump: %v\n", err)
			return err
		}
	}
	return nil
}
