// Command outreach runs the cold-outreach email assistant as a web server,
// an interactive terminal chat, or a key setup prompt.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"outreach/pkg/logx"
	"outreach/pkg/version"
)

const usage = `usage: outreach [flags] [serve|chat|keys]

  serve   run the web UI and JSON API (default)
  chat    talk to the assistant in this terminal
  keys    enter, verify and save provider API keys

flags:
`

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file (optional)")
		addr        = flag.String("addr", "", "Listen address, overrides config")
		sessionID   = flag.String("session", "", "Session id to resume in chat mode")
		debug       = flag.Bool("debug", false, "Enable debug logging")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("outreach %s\n", version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)
		os.Exit(0)
	}
	if *debug {
		logx.SetDebug(true)
	}

	mode := "serve"
	if flag.NArg() > 0 {
		mode = flag.Arg(0)
	}

	os.Exit(run(mode, *configPath, *addr, *sessionID))
}

// run contains the main application logic and returns an exit code.
func run(mode, configPath, addr, sessionID string) int {
	logger := logx.NewLogger("main")

	a, err := newApp(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return 1
	}
	if addr != "" {
		a.cfg.Addr = addr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch mode {
	case "serve":
		err = a.serve(ctx)
	case "chat":
		err = a.chat(ctx, os.Stdin, os.Stdout, sessionID)
	case "keys":
		err = a.keys(ctx, os.Stdin, os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n\n", mode)
		flag.Usage()
		return 2
	}

	if err != nil {
		logger.Error("%s failed: %v", mode, err)
		return 1
	}
	return 0
}
