package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"outreach/pkg/config"
	"outreach/pkg/verify"
)

// prompter reads answers from one input source. ReadSecret does not echo
// on a terminal.
type prompter interface {
	ReadLine(prompt string) (string, error)
	ReadSecret(prompt string) (string, error)
}

// keys prompts for provider keys, verifies them, and saves the ones that work.
func (a *app) keys(ctx context.Context, in io.Reader, out io.Writer) error {
	var p prompter = &linePrompter{reader: bufio.NewReader(in), out: out}
	restore := func() {}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		tp, undo, err := newTerminalPrompter(f, out)
		if err != nil {
			return err
		}
		p, restore = tp, undo
	}

	input, err := promptKeys(p)
	restore()
	if err != nil {
		return err
	}

	result := a.verifier.UpdateKeys(ctx, input)
	printUpdate(out, result, a.envFile.Path())
	if result.Status != verify.StatusSuccess {
		return errors.New(result.Message)
	}
	return nil
}

// promptKeys asks for each credential. The base URL is only asked for when
// a DeepSeek key was given.
func promptKeys(p prompter) (verify.KeyInput, error) {
	var input verify.KeyInput
	var err error

	if input.DeepSeekKey, err = p.ReadSecret("DeepSeek API key (blank to skip): "); err != nil {
		return input, err
	}
	if input.DeepSeekKey != "" {
		prompt := fmt.Sprintf("DeepSeek API base [%s]: ", config.DefaultDeepSeekBase)
		if input.DeepSeekBase, err = p.ReadLine(prompt); err != nil {
			return input, err
		}
	}
	if input.GroqKey, err = p.ReadSecret("Groq API key (blank to skip): "); err != nil {
		return input, err
	}
	return input, nil
}

// linePrompter reads piped input. Secrets are plain lines.
type linePrompter struct {
	reader *bufio.Reader
	out    io.Writer
}

func (p *linePrompter) ReadLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (p *linePrompter) ReadSecret(prompt string) (string, error) {
	return p.ReadLine(prompt)
}

// terminalPrompter puts the terminal in raw mode and reads every answer
// through one term.Terminal, so no input is buffered anywhere else.
type terminalPrompter struct {
	t *term.Terminal
}

func newTerminalPrompter(f *os.File, out io.Writer) (*terminalPrompter, func(), error) {
	fd := int(f.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to prepare terminal: %w", err)
	}
	restore := func() { _ = term.Restore(fd, state) }

	rw := struct {
		io.Reader
		io.Writer
	}{f, out}
	return &terminalPrompter{t: term.NewTerminal(rw, "")}, restore, nil
}

func (p *terminalPrompter) ReadLine(prompt string) (string, error) {
	p.t.SetPrompt(prompt)
	line, err := p.t.ReadLine()
	return terminalAnswer(line, err)
}

func (p *terminalPrompter) ReadSecret(prompt string) (string, error) {
	secret, err := p.t.ReadPassword(prompt)
	return terminalAnswer(secret, err)
}

func terminalAnswer(line string, err error) (string, error) {
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func printUpdate(out io.Writer, result verify.UpdateResult, envFile string) {
	printCheck(out, "deepseek", result.Verification.DeepSeek)
	printCheck(out, "groq", result.Verification.Groq)
	if result.Status == verify.StatusSuccess {
		fmt.Fprintf(out, "✅ %s (saved to %s)\n", result.Message, envFile)
		return
	}
	fmt.Fprintf(out, "❌ %s\n", result.Message)
}
