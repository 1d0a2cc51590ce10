package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/showroom-assistant/internal/conversation"
	"github.com/sells-group/showroom-assistant/internal/model"
	"github.com/sells-group/showroom-assistant/internal/sessionlog"
)

// chatSession is the orchestrator surface the terminal loop drives.
type chatSession interface {
	Send(ctx context.Context, text string) (*model.Message, error)
	Snapshot() conversation.Snapshot
	Reset() error
	SetCustomerName(name string)
	SetStep(step string)
	SelectVehicle(ctx context.Context, stockNumber string) (model.Vehicle, error)
	Flush(ctx context.Context)
	SessionLog() model.SessionLog
}

const chatHelp = `Type a message and press enter. Commands:
  /name <customer name>   set the customer's name
  /step <step>            record the current sales step
  /select <stock number>  select a vehicle
  /profile                show what has been captured so far
  /reset                  start a new session
  /quit                   exit`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run an interactive assistant session in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx, "chat", nil)
		if err != nil {
			return err
		}
		defer env.Close()

		mute, _ := cmd.Flags().GetBool("mute")
		if mute {
			env.Speech.SetEnabled(false)
		}

		fmt.Fprintln(os.Stdout, chatHelp)
		return runChat(ctx, env.Conversation, os.Stdin, os.Stdout)
	},
}

func init() {
	chatCmd.Flags().Bool("mute", false, "do not speak replies")
	rootCmd.AddCommand(chatCmd)
}

// runChat reads one line at a time from in until EOF, /quit or ctx is done.
func runChat(ctx context.Context, conv chatSession, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	prompt := func() { _, _ = fmt.Fprint(out, "> ") }

	prompt()
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			prompt()
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := chatCommand(ctx, conv, line, out); quit {
				break
			}
			prompt()
			continue
		}

		msg, err := conv.Send(ctx, line)
		switch {
		case errors.Is(err, conversation.ErrBusy):
			_, _ = fmt.Fprintln(out, "(still answering the last message)")
		case err != nil:
			return err
		default:
			printReply(out, msg, conv.Snapshot())
		}
		prompt()
	}
	conv.Flush(ctx)
	return scanner.Err()
}

// chatCommand handles a slash command and reports whether to quit.
func chatCommand(ctx context.Context, conv chatSession, line string, out io.Writer) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		_, _ = fmt.Fprintln(out, chatHelp)
	case "/name":
		conv.SetCustomerName(arg)
		conv.Flush(ctx)
		_, _ = fmt.Fprintf(out, "customer: %s\n", arg)
	case "/step":
		if arg == "" {
			_, _ = fmt.Fprintln(out, "usage: /step <step>")
			break
		}
		conv.SetStep(arg)
		conv.Flush(ctx)
		_, _ = fmt.Fprintf(out, "step: %s\n", arg)
	case "/select":
		v, err := conv.SelectVehicle(ctx, arg)
		if err != nil {
			_, _ = fmt.Fprintf(out, "no vehicle with stock number %q\n", arg)
			break
		}
		_, _ = fmt.Fprintf(out, "selected: %s (#%s) %s\n", v.Title(), v.StockNumber, money(v.Price))
	case "/profile":
		printProfile(out, conv.SessionLog(), conv.Snapshot().Profile)
	case "/reset":
		if err := conv.Reset(); err != nil {
			_, _ = fmt.Fprintln(out, "(still answering the last message)")
			break
		}
		_, _ = fmt.Fprintln(out, "started a new session")
	default:
		_, _ = fmt.Fprintf(out, "unknown command %s, try /help\n", name)
	}
	return false
}

func printReply(out io.Writer, msg *model.Message, snap conversation.Snapshot) {
	_, _ = fmt.Fprintf(out, "assistant: %s\n", msg.Text)
	if len(msg.Vehicles) > 0 {
		formatVehicles(out, msg.Vehicles)
	}
	for _, f := range snap.Followups() {
		_, _ = fmt.Fprintf(out, "  suggestion: %s\n", f)
	}
}

func printProfile(out io.Writer, log model.SessionLog, profile model.Profile) {
	_, _ = fmt.Fprintf(out, "session %s\n%s\n", log.SessionID, sessionlog.Summary(log))
	if profile.IsEmpty() {
		_, _ = fmt.Fprintln(out, "(nothing captured from the conversation yet)")
	}
}
