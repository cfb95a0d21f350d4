// run.go - the `uxn run` subcommand, grounded on chippy's cmd/run.go:
// resolve flags, build the Machine, boot the ROM, and run the
// platform's Window (ebiten-backed unless built with -tags headless)
// until it exits.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zotley/uxnvm/internal/host"
	"github.com/zotley/uxnvm/internal/romload"
	"github.com/zotley/uxnvm/internal/varvara"
)

var (
	scaleFlag  int
	nativeFlag bool
)

// runCmd runs a ROM; everything after a literal "--" is passed through
// to the guest as console arguments (§4.F's argument-injection
// protocol).
var runCmd = &cobra.Command{
	Use:                "run path/to/rom [-- args...]",
	Short:              "run a Uxn ROM",
	Args:               cobra.MinimumNArgs(1),
	DisableFlagParsing: false,
	Run:                runROM,
}

func init() {
	runCmd.Flags().IntVar(&scaleFlag, "scale", 2, "integer window scale factor")
	runCmd.Flags().BoolVar(&nativeFlag, "native", false, "disable console raw-mode stdin capture")
}

func runROM(cmd *cobra.Command, args []string) {
	romPath := args[0]
	guestArgs := args[1:]

	rom, err := romload.Load(romPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	m := varvara.New()
	m.Boot(rom)

	var stdin *host.StdinReader
	if !nativeFlag {
		stdin = host.NewStdinReader()
		if err := stdin.Start(); err != nil {
			fmt.Fprintln(os.Stderr, "uxn: stdin raw mode unavailable:", err)
			stdin = nil
		} else {
			defer stdin.Stop()
		}
	}

	for _, ab := range romload.EncodeArgs(guestArgs) {
		m.QueueArg(ab.Byte, ab.Final, ab.Spacer)
	}

	audio, err := host.NewAudioSink(m.Audio)
	if err != nil {
		fmt.Fprintln(os.Stderr, "uxn: audio disabled:", err)
	} else {
		audio.Start()
		defer audio.Close()
	}

	win := host.NewWindow(m, stdin, scaleFlag)
	win.OnOutput(
		func(b []byte) { os.Stdout.Write(b) },
		func(b []byte) { os.Stderr.Write(b) },
	)
	if stdin == nil && !nativeFlag {
		win.SetStatus("stdin unavailable: running without console input")
	}
	if err := win.Run(romPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(m.System.ExitCode))
	}
	os.Exit(int(m.System.ExitCode))
}
