package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/showroom-assistant/internal/speech"
)

var speakCmd = &cobra.Command{
	Use:   "speak <text>",
	Short: "Speak text once through the configured voice tiers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		coord := initSpeech(func(from, to speech.State) {
			zap.L().Debug("speech state", zap.String("from", from.String()), zap.String("to", to.String()))
		}, newBreakers())
		defer coord.Close()
		coord.SetEnabled(true)

		if local, _ := cmd.Flags().GetBool("local"); !local {
			coord.Probe(ctx)
		}

		if !coord.Speak(ctx, strings.Join(args, " ")) {
			fmt.Fprintln(os.Stderr, "Nothing to speak, or no speech engine is configured.")
			return nil
		}

		done := make(chan struct{})
		go func() {
			coord.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			coord.Stop()
		}
		return nil
	},
}

func init() {
	speakCmd.Flags().Bool("local", false, "skip the hosted voice and use the local synthesizer")
	rootCmd.AddCommand(speakCmd)
}
