package main

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/schollz/xentune/internal/diagnostics"
	"github.com/schollz/xentune/internal/scheduler"
	"github.com/schollz/xentune/internal/session"
)

func newJITCmd() *cobra.Command {
	var outChans int
	var clashPolicyName string
	var saveSessionPath string
	var loadSessionPath string

	cmd := &cobra.Command{
		Use:   "jit [<technique> ref-note <key> <scale-expr>]",
		Short: "Retune a small pool of output channels on demand as notes are played",
		Args:  loadableArgs(&loadSessionPath),
		RunE: func(cmd *cobra.Command, args []string) error {
			technique, anchorKey, exprStr, loaded, err := resolveRunParams(cmd, args, loadSessionPath)
			if err != nil {
				return err
			}
			if loaded != nil {
				if !cmd.Flags().Changed("out-chans") && loaded.OutChans != 0 {
					outChans = loaded.OutChans
				}
				if !cmd.Flags().Changed("clash") && loaded.ClashPolicy != "" {
					clashPolicyName = loaded.ClashPolicy
				}
			}
			ts, err := buildTunedScale(anchorKey, exprStr)
			if err != nil {
				return err
			}
			policy, err := scheduler.ParseClashPolicy(clashPolicyName)
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
			jit, err := scheduler.NewJIT(ts, out, cfg, outChans, policy)
			if err != nil {
				return err
			}
			log.Printf("jit: pool of %d channel(s), clash policy %s", outChans, policy)

			if saveSessionPath != "" {
				sc := session.Config{
					Mode: "jit", Technique: technique.String(),
					RefNoteKey: anchorKey, ScaleExpr: exprStr,
					ConcertHz: flagConcertHz, ConcertKey: flagConcertKey,
					Lo: flagLo, Up: flagUp,
					OutChans: outChans, ClashPolicy: policy.String(),
				}
				if flagHasRootKey {
					sc.RootKey = flagRootKey
				}
				if err := session.Save(saveSessionPath, sc); err != nil {
					log.Printf("jit: saving session config: %v", err)
				}
			}

			if flagStatsPath != "" {
				rec := diagnostics.NewRecorder(flagStatsPath, stats)
				defer rec.Save()
			}

			ctx, cancel := context.WithCancel(context.Background())
			go waitForInterrupt(cancel)
			return jit.Run(ctx, in)
		},
	}
	cmd.Flags().IntVar(&outChans, "out-chans", 4, "size of the retunable output channel pool")
	cmd.Flags().StringVar(&clashPolicyName, "clash", "steal-oldest", "clash policy when the pool is full: steal-oldest, steal-quietest, drop-new, sound-untuned")
	cmd.Flags().StringVar(&flagStatsPath, "stats-path", "", "write run statistics to this gzip+JSON file on exit")
	cmd.Flags().StringVar(&saveSessionPath, "save-session", "", "save this invocation's parameters as a YAML session config")
	cmd.Flags().StringVar(&loadSessionPath, "load-session", "", "load technique/ref-note/scale-expr/range/out-chans/clash-policy from a saved YAML session config instead of positional args")
	return cmd
}
