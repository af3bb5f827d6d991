package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schollz/xentune/internal/scaleexpr"
	"github.com/schollz/xentune/internal/sclfile"
)

func newSCLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scl",
		Short: "Export or import Scala .scl scale files",
	}
	cmd.AddCommand(newSCLExportCmd())
	cmd.AddCommand(newSCLImportCmd())
	return cmd
}

func newSCLExportCmd() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "export <scale-expr> <out.scl>",
		Short: "Write a scale expression out as a Scala .scl file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scaleexpr.Parse(args[0])
			if err != nil {
				return err
			}
			f := sclfile.FromScale(sc, description)

			out, err := os.Create(args[1])
			if err != nil {
				return fmt.Errorf("scl export: creating %s: %w", args[1], err)
			}
			defer out.Close()
			return f.Write(out)
		},
	}
	cmd.Flags().StringVar(&description, "description", "xentune scale", "description line written into the .scl header")
	return cmd
}

func newSCLImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <in.scl>",
		Short: "Parse a Scala .scl file and print its degrees as cents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("scl import: opening %s: %w", args[0], err)
			}
			defer in.Close()

			f, err := sclfile.Parse(in)
			if err != nil {
				return err
			}
			sc, err := f.Scale()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d degrees, period %s)\n", f.Description, sc.Size(), sc.Period())
			for d := 1; d <= sc.Size(); d++ {
				fmt.Fprintf(cmd.OutOrStdout(), "  degree %2d: %10.4f cents\n", d, sc.DegreeToRatio(d).Cents())
			}
			return nil
		},
	}
	return cmd
}
