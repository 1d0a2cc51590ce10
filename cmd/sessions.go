package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/showroom-assistant/internal/sessionlog"
	"github.com/sells-group/showroom-assistant/internal/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect logged showroom sessions",
	Long:  "Commands for listing and viewing the session logs written by the assistant.",
}

// -- sessions list --

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("sessions"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		customer, _ := cmd.Flags().GetString("customer")
		limit, _ := cmd.Flags().GetInt("limit")
		since, _ := cmd.Flags().GetDuration("since")

		filter := store.SessionFilter{
			CustomerName: customer,
			Limit:        limit,
		}
		if since > 0 {
			filter.Since = time.Now().Add(-since)
		}

		sessions, err := st.ListSessions(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "sessions list")
		}

		if len(sessions) == 0 {
			fmt.Fprintln(os.Stderr, "No sessions found.")
			return nil
		}

		formatSessionsList(os.Stdout, sessions)
		return nil
	},
}

// -- sessions show --

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the full log of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("sessions"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		log, err := st.GetSession(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "sessions show")
		}

		if text, _ := cmd.Flags().GetBool("text"); text {
			fmt.Fprintln(os.Stdout, sessionlog.Summary(*log))
			fmt.Fprintln(os.Stdout)
			fmt.Fprintln(os.Stdout, sessionlog.TranscriptText(log.Transcript))
			return nil
		}
		return writeJSON(os.Stdout, log)
	},
}

func init() {
	sessionsListCmd.Flags().String("customer", "", "filter by customer name")
	sessionsListCmd.Flags().Int("limit", 50, "max number of sessions to display")
	sessionsListCmd.Flags().Duration("since", 0, "only sessions updated within this window (e.g. 24h)")

	sessionsShowCmd.Flags().Bool("text", false, "print a readable summary and transcript instead of JSON")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	rootCmd.AddCommand(sessionsCmd)
}
