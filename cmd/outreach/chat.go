package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/term"

	"outreach/pkg/conversation"
	"outreach/pkg/logx"
	"outreach/pkg/session"
	"outreach/pkg/verify"
	"outreach/pkg/webui"
)

// Chat commands.
const (
	cmdReset    = "/reset"
	cmdDownload = "/download"
	cmdCheck    = "/check"
	cmdQuit     = "/quit"
)

const chatHelp = "Commands: /reset starts over, /download prints the email, /check tests the APIs, /quit exits."

// chat runs an interactive conversation on in/out. The session is saved
// after every turn so it can be resumed with -session.
func (a *app) chat(ctx context.Context, in io.Reader, out io.Writer, sessionID string) error {
	store, err := a.openSessions()
	if err != nil {
		return err
	}
	defer store.Close()

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	fmt.Fprintf(out, "Session %s\n%s\n\n", sessionID, chatHelp)

	return runChat(ctx, a.controller, a.verifier, store, sessionID, in, out, isTerminal(in))
}

func runChat(
	ctx context.Context,
	controller *conversation.Controller,
	verifier *verify.Verifier,
	store session.Store,
	id string,
	in io.Reader,
	out io.Writer,
	interactive bool,
) error {
	state, err := session.Load(ctx, store, id)
	if err != nil {
		return fmt.Errorf("failed to load session %s: %w", id, err)
	}

	ctx = logx.WithComponent(ctx, "session-"+id)
	turn := func(message string) error {
		reply := controller.Handle(ctx, state, message)
		fmt.Fprintf(out, "%s\n\n", reply.Message)
		return store.Set(ctx, id, state)
	}

	// A fresh session opens with the first question; a resumed one waits.
	if state.Step == 0 {
		if err := turn(""); err != nil {
			return err
		}
	}

	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(line) {
		case cmdQuit:
			return nil
		case cmdReset:
			state.Reset()
			if err := store.Clear(ctx, id); err != nil {
				return fmt.Errorf("failed to reset session: %w", err)
			}
			if err := turn(""); err != nil {
				return err
			}
		case cmdDownload:
			if state.Result == nil || state.Result.Text == "" {
				fmt.Fprintf(out, "%s\n\n", webui.NoEmailMessage)
				continue
			}
			fmt.Fprintf(out, "%s\n\n", state.Result.CleanText())
		case cmdCheck:
			printHealth(out, verifier.Health(ctx))
		default:
			if err := turn(line); err != nil {
				return err
			}
		}

		if ctx.Err() != nil {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}

func printHealth(out io.Writer, h verify.HealthResult) {
	fmt.Fprintf(out, "%s: %s\n", h.Status, h.Message)
	printCheck(out, "deepseek", h.APIs.DeepSeek)
	printCheck(out, "groq", h.APIs.Groq)
	fmt.Fprintln(out)
}

func printCheck(out io.Writer, name string, c verify.CheckResult) {
	fmt.Fprintf(out, "  %-9s %s (%s)", name+":", c.Status, c.Message)
	if c.Circuit != "" {
		fmt.Fprintf(out, " circuit %s", c.Circuit)
	}
	fmt.Fprintln(out)
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
