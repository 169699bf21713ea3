// Command nutrictl talks to the nutrition API from the terminal. The bearer
// token is kept in ~/.nutriplan/auth_token between invocations.
//
//	nutrictl [-api URL] [-state DIR] <command> [flags]
//
// Commands: login, register, logout, profile, plans, generate, meal,
// recommend, analyze.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
)

const defaultAPI = "http://localhost:8000/api/v1"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("nutrictl", flag.ContinueOnError)
	global.SetOutput(stderr)
	apiURL := global.String("api", envOr("NUTRIPLAN_API", defaultAPI), "API base URL")
	stateDir := global.String("state", "", "token directory (default ~/.nutriplan)")
	verbose := global.Bool("v", false, "log requests to stderr")
	global.Usage = func() {
		fmt.Fprintln(stderr, "usage: nutrictl [-api URL] [-state DIR] [-v] <command> [flags]")
		fmt.Fprintln(stderr, "commands: login, register, logout, profile, plans, generate, meal, recommend, analyze")
		global.PrintDefaults()
	}
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	level := slog.LevelError + 1
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	app, err := newApp(*apiURL, *stateDir, stdout, logger)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}

	name, rest := global.Arg(0), global.Args()[1:]
	cmd, ok := app.commands()[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", name)
		global.Usage()
		return 2
	}
	if err := cmd(ctx, rest); err != nil {
		if isUsage(err) {
			fmt.Fprintln(stderr, err)
			return 2
		}
		fmt.Fprintln(stderr, "Error:", app.explain(ctx, err))
		return 1
	}
	return 0
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return strings.TrimRight(v, "/")
	}
	return fallback
}
