package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/tskr/app"
	"github.com/danielhkuo/tskr/cliparse"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("tskr failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(routeArgs(rootCmd, args))
	return rootCmd.ExecuteContext(context.Background())
}

// routeArgs picks the subcommand from the first argument only. Cobra cannot
// tell flag values from subcommand names once flag parsing is off, so
// anything else is sent to serve untouched.
func routeArgs(root *cobra.Command, args []string) []string {
	if len(args) > 0 {
		if args[0] == "help" {
			return args
		}
		for _, c := range root.Commands() {
			if c.Name() == args[0] || c.HasAlias(args[0]) {
				return args
			}
		}
	}
	return append([]string{"serve"}, args...)
}

// Flags are handed to cliparse untouched, so cobra's own parsing is off
func newRootCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:                "serve [flags]",
		Short:              "Run the web application",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), args)
		},
	}

	coreCmd := &cobra.Command{
		Use:   "core [-autostart] [flags]",
		Short: "Run the scheduler core service for prefork workers",
		Long: `core owns the scheduler that prefork workers share and serves it over
JSON-RPC on CORE_SERVICE_HOST:CORE_SERVICE_PORT. The scheduler starts when
worker #1 asks for it, or immediately with -autostart.`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			autostart, rest := takeFlag(args, "autostart")
			return core(cmd.Context(), rest, autostart)
		},
	}

	rootCmd := &cobra.Command{
		Use:   "tskr [flags]",
		Short: "Scheduled task service",
		Long: `tskr runs scheduled jobs behind an authenticated JSON API.

Without TSKR_WORKER_ID it runs standalone with an in-process scheduler.
Under a prefork supervisor each worker gets TSKR_WORKER_ID and shares the
scheduler of a "tskr core" process.`,
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		CompletionOptions:  cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), args)
		},
	}
	rootCmd.AddCommand(serveCmd, coreCmd)
	return rootCmd
}

func serve(parent context.Context, args []string) error {
	cfg, err := cliparse.ParseFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error parsing flags: %w", err)
	}

	ctx, stop := signalContext(parent)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

func core(parent context.Context, args []string, autostart bool) error {
	cfg, err := cliparse.ParseFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error parsing flags: %w", err)
	}

	ctx, stop := signalContext(parent)
	defer stop()

	c, err := app.NewCore(ctx, cfg, autostart)
	if err != nil {
		return err
	}
	return c.Run(ctx)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// takeFlag removes a boolean flag (-name or --name) from args
func takeFlag(args []string, name string) (bool, []string) {
	found := false
	rest := make([]string, 0, len(args))
	for _, a := range args {
		if a == "-"+name || a == "--"+name || a == "-"+name+"=true" || a == "--"+name+"=true" {
			found = true
			continue
		}
		rest = append(rest, a)
	}
	return found, rest
}
