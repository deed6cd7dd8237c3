package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/blockql/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Origins []string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API used by the block editor.

All requests share one session. Saved queries go to --database when set,
otherwise they are kept in memory until the server stops.

Example:
  blockql serve --listen 127.0.0.1:8080 --database ./queries.db
  blockql serve --catalog ./catalog.cue --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().String("listen", "", "listen address (default 127.0.0.1:8080)")
	cmd.Flags().Int("preview-delay-ms", 0, "simulated query latency in milliseconds")
	cmd.Flags().Int("page-size", 0, "rows per preview page")
	cmd.Flags().StringSliceVar(&opts.Origins, "allowed-origins", nil, "CORS origins (default any)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	env, err := openEnvironment(opts.RootOptions, cmd, formatter)
	if err != nil {
		return err
	}
	defer env.Close()

	srv := server.New(env.session, server.Options{
		AllowedOrigins: opts.Origins,
		Logger:         env.logger,
	})

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			env.logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	env.logger.Info("server starting", "listen", env.cfg.Listen, "database", env.cfg.Database)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", env.cfg.Listen)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if err := srv.ListenAndServe(ctx, env.cfg.Listen); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "server error", nil, err)
	}

	env.logger.Info("server stopped gracefully")
	return nil
}
