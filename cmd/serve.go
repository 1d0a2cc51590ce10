package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/showroom-assistant/internal/kiosk"
	"github.com/sells-group/showroom-assistant/internal/speech"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the kiosk API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// The server is created after the speech coordinator, so state
		// changes are forwarded through this closure.
		var srv *kiosk.Server
		env, err := initApp(ctx, "serve", func(from, to speech.State) {
			if srv != nil {
				srv.SpeechStateChanged(from, to)
			}
		})
		if err != nil {
			return err
		}
		defer env.Close()

		srv = kiosk.NewServer(kiosk.Options{
			Conversation:   env.Conversation,
			Inventory:      env.Inventory,
			Speech:         env.Speech,
			Sessions:       env.Store,
			Breakers:       env.Breakers,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		return srv.Run(ctx, fmt.Sprintf(":%d", port))
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
