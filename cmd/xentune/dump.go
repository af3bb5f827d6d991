package main

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/schollz/xentune/internal/exchange"
)

func newDumpCmd() *cobra.Command {
	var outPath string
	var format string
	cmd := &cobra.Command{
		Use:   "dump <technique> ref-note <key> <scale-expr>",
		Short: "Print the sounded pitch of every key in [--lo, --up] as a YAML scale document",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			// technique (args[0]) only matters for realizability diagnostics
			// a MIDI-connected command would check; dump is silent on it.
			anchorKey, exprStr, err := parseRefNoteArgs(args[1:])
			if err != nil {
				return err
			}
			ts, err := buildTunedScale(anchorKey, exprStr)
			if err != nil {
				return err
			}

			doc, err := exchange.NewScale(ts, anchorKey, flagLo, flagUp)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("dump: creating %s: %w", outPath, err)
				}
				defer f.Close()
				w = f
			}

			switch format {
			case "yaml":
				return exchange.WriteScale(w, doc)
			case "json":
				enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			default:
				return fmt.Errorf("dump: unknown --format %q, want \"yaml\" or \"json\"", format)
			}
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "write the document to this file instead of stdout")
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	return cmd
}
