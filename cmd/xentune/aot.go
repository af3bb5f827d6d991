package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/schollz/xentune/internal/diagnostics"
	"github.com/schollz/xentune/internal/scheduler"
	"github.com/schollz/xentune/internal/session"
)

var flagStatsPath string

func newAOTCmd() *cobra.Command {
	var saveSessionPath string
	var loadSessionPath string
	cmd := &cobra.Command{
		Use:   "aot [<technique> ref-note <key> <scale-expr>]",
		Short: "Pre-tune a fixed set of output channels and route incoming keys to them",
		Args:  loadableArgs(&loadSessionPath),
		RunE: func(cmd *cobra.Command, args []string) error {
			technique, anchorKey, exprStr, _, err := resolveRunParams(cmd, args, loadSessionPath)
			if err != nil {
				return err
			}
			ts, err := buildTunedScale(anchorKey, exprStr)
			if err != nil {
				return err
			}

			out, err := resolveOutPort()
			if err != nil {
				return err
			}
			defer out.Close()
			in, err := resolveInPort()
			if err != nil {
				return err
			}
			defer in.Close()

			stats := diagnostics.NewStats(technique.String(), time.Now())

			cfg := scheduler.Config{
				InputChannel: flagInChannel,
				Lo:           flagLo,
				Up:           flagUp,
				Technique:    technique,
				ConcertHz:    flagConcertHz,
				ConcertKey:   flagConcertKey,
				DeviceID:     flagDeviceID,
				Debug:        flagDebugLog != "",
				Stats:        stats,
			}
			aot, err := scheduler.NewAOT(ts, out, cfg)
			if err != nil {
				return err
			}
			log.Printf("aot: planned %d channel(s), %d unmapped, %d out of range",
				len(aot.Plan().Channels), len(aot.Plan().Unmapped), len(aot.Plan().OutOfRange))

			if saveSessionPath != "" {
				sc := session.Config{
					Mode: "aot", Technique: technique.String(),
					RefNoteKey: anchorKey, ScaleExpr: exprStr,
					ConcertHz: flagConcertHz, ConcertKey: flagConcertKey,
					Lo: flagLo, Up: flagUp,
				}
				if flagHasRootKey {
					sc.RootKey = flagRootKey
				}
				if err := session.Save(saveSessionPath, sc); err != nil {
					log.Printf("aot: saving session config: %v", err)
				}
			}

			if flagStatsPath != "" {
				rec := diagnostics.NewRecorder(flagStatsPath, stats)
				defer rec.Save()
			}

			ctx, cancel := context.WithCancel(context.Background())
			go waitForInterrupt(cancel)
			return aot.Run(ctx, in)
		},
	}
	cmd.Flags().StringVar(&flagStatsPath, "stats-path", "", "write run statistics to this gzip+JSON file on exit")
	cmd.Flags().StringVar(&saveSessionPath, "save-session", "", "save this invocation's parameters as a YAML session config")
	cmd.Flags().StringVar(&loadSessionPath, "load-session", "", "load technique/ref-note/scale-expr/range from a saved YAML session config instead of positional args")
	return cmd
}

func waitForInterrupt(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	<-c
	cancel()
}
