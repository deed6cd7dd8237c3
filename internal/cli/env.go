package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/blockql/internal/config"
	"github.com/roach88/blockql/internal/preview"
	"github.com/roach88/blockql/internal/session"
	"github.com/roach88/blockql/internal/store"
)

// environment is what every session-backed command runs against.
type environment struct {
	cfg     *config.Config
	logger  *slog.Logger
	session *session.Session

	// store is nil when saved queries are kept in memory.
	store *store.Store
}

// openEnvironment loads configuration, the catalog and the saved-query
// repository, and builds a session from them. Failures are reported
// through f.
func openEnvironment(opts *RootOptions, cmd *cobra.Command, f *OutputFormatter) (*environment, error) {
	cfg, err := config.Load(opts.ConfigFile, cmd.Flags())
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil, err)
	}

	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose || cfg.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))
	if cfg.File != "" {
		logger.Debug("config loaded", "file", cfg.File)
	}

	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return nil, f.Fail(ExitCommandError, loadErrorCode(err), err.Error(), nil, err)
	}

	env := &environment{cfg: cfg, logger: logger}

	var repo session.Repository = session.NewMemoryRepository(0)
	if cfg.Database != "" {
		logger.Debug("opening database", "path", cfg.Database)
		st, err := store.Open(cfg.Database)
		if err != nil {
			return nil, f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", nil, err)
		}
		env.store = st
		repo = st
	}

	exec := opts.Executor
	if exec == nil {
		exec = &preview.MockExecutor{Delay: cfg.PreviewDelay(), Logger: logger}
	}

	env.session = session.New(session.Options{
		Catalog:    cat,
		Repository: repo,
		Executor:   exec,
		IDs:        opts.IDs,
		Now:        opts.Now,
		Logger:     logger,
		PageSize:   cfg.PageSize,
	})
	return env, nil
}

// Close releases the database, if one was opened.
func (e *environment) Close() {
	if e.store == nil {
		return
	}
	if err := e.store.Close(); err != nil {
		e.logger.Error("error closing database", "error", err)
	}
}
