// Command xentune is the CLI surface over the tuning model and the
// retuning schedulers: build a scale, pick a MIDI port, and run an
// ahead-of-time or just-in-time retuner, or shuttle scales and keyboard
// mappings to and from Scala's .scl/.kbm text formats.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/schollz/xentune/internal/kbm"
	"github.com/schollz/xentune/internal/mts"
	"github.com/schollz/xentune/internal/scaleexpr"
	"github.com/schollz/xentune/internal/session"
	"github.com/schollz/xentune/internal/tunedscale"
)

var (
	flagDebugLog   string
	flagOutPort    string
	flagInPort     string
	flagDeviceID   uint8
	flagConcertHz  float64
	flagConcertKey int
	flagLo         int
	flagUp         int
	flagRootKey    int
	flagHasRootKey bool
	flagInChannel  int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "xentune",
		Short: "Microtonal scale design and live MIDI retuning",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			flagHasRootKey = cmd.Flags().Changed("root-key")
			return setupDebugLog()
		},
	}

	root.PersistentFlags().StringVar(&flagDebugLog, "debug", "", "write debug logs to this file; empty disables logging")
	root.PersistentFlags().StringVar(&flagOutPort, "out-port", "", "MIDI output port name (substring match); empty opens an interactive picker")
	root.PersistentFlags().StringVar(&flagInPort, "in-port", "", "MIDI input port name (substring match); empty opens an interactive picker")
	root.PersistentFlags().Uint8Var(&flagDeviceID, "device-id", 0x7F, "MTS SysEx device ID (0-127, 0x7F broadcasts to all devices)")
	root.PersistentFlags().Float64Var(&flagConcertHz, "concert-hz", 440.0, "concert pitch reference, in Hz")
	root.PersistentFlags().IntVar(&flagConcertKey, "concert-key", 69, "MIDI key the concert pitch reference is assigned to")
	root.PersistentFlags().IntVar(&flagLo, "lo", 0, "lowest MIDI key the scheduler plans for")
	root.PersistentFlags().IntVar(&flagUp, "up", 127, "highest MIDI key the scheduler plans for")
	root.PersistentFlags().IntVar(&flagRootKey, "root-key", 0, "scale-degree-0 key, if different from ref-note's anchor key")
	root.PersistentFlags().IntVar(&flagInChannel, "in-channel", 0, "MIDI input channel the scheduler listens on (0-15)")

	root.AddCommand(newAOTCmd())
	root.AddCommand(newJITCmd())
	root.AddCommand(newSCLCmd())
	root.AddCommand(newKBMCmd())
	root.AddCommand(newDumpCmd())
	return root
}

func setupDebugLog() error {
	if flagDebugLog == "" {
		log.SetOutput(io.Discard)
		return nil
	}
	f, err := tea.LogToFile(flagDebugLog, "xentune")
	if err != nil {
		return fmt.Errorf("opening debug log %s: %w", flagDebugLog, err)
	}
	log.SetOutput(f)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	return nil
}

// parseRefNoteArgs pulls the spec's fixed "ref-note <key> <scale-expr>"
// positional shape out of args, returning the anchor key and the scale
// expression string.
func parseRefNoteArgs(args []string) (anchorKey int, exprStr string, err error) {
	if len(args) != 3 || args[0] != "ref-note" {
		return 0, "", fmt.Errorf("expected \"ref-note <key> <scale-expr>\", got %v", args)
	}
	_, err = fmt.Sscanf(args[1], "%d", &anchorKey)
	if err != nil {
		return 0, "", fmt.Errorf("malformed ref-note key %q: %w", args[1], err)
	}
	return anchorKey, args[2], nil
}

// buildTunedScale parses exprStr into a scale, builds a linear keyboard
// mapping anchored at anchorKey (root key defaults to the anchor unless
// --root-key was set), and composes the two into a TunedScale.
func buildTunedScale(anchorKey int, exprStr string) (*tunedscale.TunedScale, error) {
	sc, err := scaleexpr.Parse(exprStr)
	if err != nil {
		return nil, err
	}
	root := anchorKey
	if flagHasRootKey {
		root = flagRootKey
	}
	mapping, err := kbm.NewLinear(anchorKey, flagConcertHz, root, sc.Size())
	if err != nil {
		return nil, fmt.Errorf("building keyboard mapping: %w", err)
	}
	return tunedscale.New(sc, mapping)
}

func parseTechniqueArg(s string) (mts.Technique, error) {
	return mts.ParseTechnique(s)
}

// loadableArgs requires the normal "<technique> ref-note <key> <scale-expr>"
// positional shape, unless --load-session was given, in which case the
// positionals come from the saved session config instead and none may
// appear on the command line.
func loadableArgs(loadSessionPath *string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if *loadSessionPath != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(4)(cmd, args)
	}
}

// resolveRunParams returns the technique, anchor key, and scale expression
// for an aot/jit run, either parsed from positional args or loaded from a
// saved session config. A loaded session also seeds the lo/up/concert-hz/
// concert-key/root-key persistent flags that this invocation didn't set
// explicitly. The returned *session.Config is non-nil only when a session
// was loaded, so jit can pull its own out-chans/clash-policy fields from it.
func resolveRunParams(cmd *cobra.Command, args []string, loadSessionPath string) (mts.Technique, int, string, *session.Config, error) {
	if loadSessionPath == "" {
		technique, err := parseTechniqueArg(args[0])
		if err != nil {
			return 0, 0, "", nil, err
		}
		anchorKey, exprStr, err := parseRefNoteArgs(args[1:])
		if err != nil {
			return 0, 0, "", nil, err
		}
		return technique, anchorKey, exprStr, nil, nil
	}

	sc, err := session.Load(loadSessionPath)
	if err != nil {
		return 0, 0, "", nil, err
	}
	technique, err := parseTechniqueArg(sc.Technique)
	if err != nil {
		return 0, 0, "", nil, err
	}
	if !cmd.Flags().Changed("lo") {
		flagLo = sc.Lo
	}
	if !cmd.Flags().Changed("up") {
		flagUp = sc.Up
	}
	if !cmd.Flags().Changed("concert-hz") {
		flagConcertHz = sc.ConcertHz
	}
	if !cmd.Flags().Changed("concert-key") {
		flagConcertKey = sc.ConcertKey
	}
	if !flagHasRootKey && sc.RootKey != 0 {
		flagRootKey = sc.RootKey
		flagHasRootKey = true
	}
	return technique, sc.RefNoteKey, sc.ScaleExpr, &sc, nil
}
