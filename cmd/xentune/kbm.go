package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schollz/xentune/internal/kbm"
	"github.com/schollz/xentune/internal/kbmfile"
)

func newKBMCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kbm",
		Short: "Export or import Scala .kbm keyboard mapping files",
	}
	cmd.AddCommand(newKBMExportCmd())
	cmd.AddCommand(newKBMImportCmd())
	return cmd
}

func newKBMExportCmd() *cobra.Command {
	var scaleSize int
	cmd := &cobra.Command{
		Use:   "export ref-note <key> <out.kbm>",
		Short: "Write a linear keyboard mapping out as a Scala .kbm file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			anchorKey, outPath, err := parseRefNoteArgs([]string{args[0], args[1], args[2]})
			if err != nil {
				return err
			}
			root := anchorKey
			if flagHasRootKey {
				root = flagRootKey
			}
			mapping, err := kbm.NewLinear(anchorKey, flagConcertHz, root, scaleSize)
			if err != nil {
				return fmt.Errorf("kbm export: building mapping: %w", err)
			}
			f := kbmfile.FromMapping(mapping)

			out, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("kbm export: creating %s: %w", outPath, err)
			}
			defer out.Close()
			return f.Write(out)
		},
	}
	cmd.Flags().IntVar(&scaleSize, "scale-size", 12, "number of scale degrees per pattern period")
	return cmd
}

func newKBMImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <in.kbm>",
		Short: "Parse a Scala .kbm file and print its mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("kbm import: opening %s: %w", args[0], err)
			}
			defer in.Close()

			f, err := kbmfile.Parse(in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "anchor key %d -> %.6f Hz, root key %d, formal octave %d\n",
				f.AnchorKey, f.AnchorHz, f.RootKey, f.FormalOctave)
			for i, slot := range f.Pattern {
				if slot == kbm.UnmappedDegree {
					fmt.Fprintf(cmd.OutOrStdout(), "  slot %2d: unmapped\n", i)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "  slot %2d: degree %d\n", i, slot)
				}
			}
			return nil
		},
	}
	return cmd
}
