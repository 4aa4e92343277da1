// Command sftool flashes SiFli SF32LB5x chips over their debug UART. It is
// a thin CLI shell around package sftool: argument parsing, config-file
// loading, and progress-bar rendering live here, never in the core library.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/maruel/interrupt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OpenSiFli/sftool"
	"github.com/OpenSiFli/sftool/config"
	"github.com/OpenSiFli/sftool/internal/chip"
	"github.com/OpenSiFli/sftool/internal/ingest"
	"github.com/OpenSiFli/sftool/internal/numparse"
	"github.com/OpenSiFli/sftool/internal/stubconfig"
)

var (
	flagPort       string
	flagBaud       int
	flagChip       string
	flagMemory     string
	flagCompat     bool
	flagQuiet      bool
	flagConfigFile string
)

func main() {
	// Caught once for the whole process: write-flash, erase-flash, and
	// erase-region poll interrupt.IsSet() between files/regions/chunks so a
	// Ctrl-C stops the operation at the next safe boundary instead of
	// leaving the stub mid-command.
	interrupt.HandleCtrlC()

	root := &cobra.Command{
		Use:   "sftool",
		Short: "Flash and inspect SiFli SF32LB5x chips over their debug UART",
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flagPort, "port", "", "serial port device")
	pf.IntVar(&flagBaud, "baud", 1_000_000, "serial baud rate")
	pf.StringVar(&flagChip, "chip", "sf32lb52", "chip family (sf32lb52|sf32lb55|sf32lb56|sf32lb58)")
	pf.StringVar(&flagMemory, "memory", "nor", "memory type (nor|nand|sd)")
	pf.BoolVar(&flagCompat, "compat", false, "force compat-mode chunked transfer")
	pf.BoolVar(&flagQuiet, "quiet", false, "suppress info-level logging")
	pf.StringVar(&flagConfigFile, "config", "", "path to a config file")

	root.AddCommand(
		writeFlashCmd(),
		readFlashCmd(),
		eraseFlashCmd(),
		eraseRegionCmd(),
		softResetCmd(),
		setBaudCmd(),
		configReadCmd(),
		configWriteCmd(),
		configClearCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(quiet bool) *zap.Logger {
	if quiet {
		cfg := zap.NewProductionConfig()
		cfg.Level.SetLevel(zap.WarnLevel)
		l, _ := cfg.Build()
		return l
	}
	l, _ := zap.NewDevelopment()
	return l
}

func openTool(cmd *cobra.Command, before sftool.ResetBefore) (*sftool.Tool, error) {
	f, err := config.Load(flagConfigFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	port := flagPort
	if port == "" {
		port = f.Port
	}

	fam, err := chip.ParseFamily(f.Chip)
	if err != nil {
		return nil, err
	}
	mem, err := chip.ParseMemory(f.Memory)
	if err != nil {
		return nil, err
	}

	return sftool.Open(context.Background(), sftool.Options{
		Port:            port,
		Baud:            f.Baud,
		Family:          fam,
		Memory:          mem,
		Before:          before,
		ConnectAttempts: 5,
		Compat:          f.Compat,
		Progress:        &barProgress{},
		Logger:          newLogger(f.Quiet),
	})
}

func writeFlashCmd() *cobra.Command {
	var verify, eraseAll bool
	cmd := &cobra.Command{
		Use:   "write-flash [file[@address]]...",
		Short: "Write one or more object files to flash",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tool, err := openTool(cmd, sftool.ResetDefault)
			if err != nil {
				return err
			}
			defer tool.Close()

			var files []sftool.WriteFlashFile
			for _, spec := range args {
				segs, err := ingest.LoadSegments(spec)
				if err != nil {
					return err
				}
				for _, s := range segs {
					files = append(files, sftool.WriteFlashFile{Address: s.Address, Data: s.Data})
				}
			}
			return tool.WriteFlash(files, sftool.WriteOptions{Verify: verify, EraseAll: eraseAll})
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "verify each file after writing")
	cmd.Flags().BoolVar(&eraseAll, "erase-all", false, "erase touched regions up front instead of incrementally")
	return cmd
}

func readFlashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read-flash <address> <size> <output-file>",
		Short: "Read a range of flash to a local file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, size, err := ingest.ParseRegionSpec(args[0] + ":" + args[1])
			if err != nil {
				return err
			}
			tool, err := openTool(cmd, sftool.ResetDefault)
			if err != nil {
				return err
			}
			defer tool.Close()
			return tool.ReadFlash(addr, size, args[2])
		},
	}
	return cmd
}

func eraseFlashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "erase-flash",
		Short: "Erase the entire flash chip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tool, err := openTool(cmd, sftool.ResetDefault)
			if err != nil {
				return err
			}
			defer tool.Close()
			return tool.EraseFlash()
		},
	}
}

func eraseRegionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "erase-region <address:size>",
		Short: "Erase a region of flash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, size, err := ingest.ParseRegionSpec(args[0])
			if err != nil {
				return err
			}
			tool, err := openTool(cmd, sftool.ResetDefault)
			if err != nil {
				return err
			}
			defer tool.Close()
			return tool.EraseRegion(addr, size)
		},
	}
}

func softResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "soft-reset",
		Short: "Reset the chip back into normal firmware execution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tool, err := openTool(cmd, sftool.ResetDefault)
			if err != nil {
				return err
			}
			defer tool.Close()
			return tool.SoftReset()
		},
	}
}

func setBaudCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-baud <baud>",
		Short: "Switch the active session to a different baud rate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			baud, err := parseUint32Arg(args[0])
			if err != nil {
				return err
			}
			tool, err := openTool(cmd, sftool.ResetDefault)
			if err != nil {
				return err
			}
			defer tool.Close()
			return tool.SetBaud(baud)
		},
	}
}

func configReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config-read <image-file>",
		Short: "Print the driver-config block embedded in an ELF/AXF image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := stubconfig.ReadFile(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%+v\n", cfg)
			return nil
		},
	}
}

func configWriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config-write <image-file>",
		Short: "Write the driver-config block embedded in an ELF/AXF image (stub: see docs)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("config-write requires a structured config source; see stubconfig.WriteFile for programmatic use")
		},
	}
}

func configClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config-clear <image-file>",
		Short: "Clear the driver-config block embedded in an ELF/AXF image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return stubconfig.ClearFile(args[0])
		},
	}
}

func parseUint32Arg(s string) (uint32, error) {
	return numparse.ParseUint32(s)
}
