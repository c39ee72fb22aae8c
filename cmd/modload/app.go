// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/invowk/modload/internal/config"
	"github.com/invowk/modload/internal/issue"
	"github.com/invowk/modload/pkg/modload"
	"github.com/invowk/modload/pkg/modscript"
	"github.com/invowk/modload/pkg/stdmods"

	"github.com/spf13/afero"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root of the CLI: every cobra handler receives the App and builds its
	// loader through it.
	App struct {
		Config   ConfigProvider
		Builtins *modload.BuiltinTable
		Fs       afero.Fs
		Getenv   func(string) string
		stdout   io.Writer
		stderr   io.Writer

		flags rootFlags
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config   ConfigProvider
		Builtins *modload.BuiltinTable
		Fs       afero.Fs
		Getenv   func(string) string
		Stdout   io.Writer
		Stderr   io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// rootFlags holds the persistent flags. Zero values mean "not set" and
	// leave the configured value in place.
	rootFlags struct {
		configPath string
		workDir    string
		verbosity  int
		onCycle    string
		searchPath []string
		logFormat  string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Builtins == nil {
		deps.Builtins = stdmods.Default()
	}
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.Getenv == nil {
		deps.Getenv = os.Getenv
	}

	return &App{
		Config:   deps.Config,
		Builtins: deps.Builtins,
		Fs:       deps.Fs,
		Getenv:   deps.Getenv,
		stdout:   deps.Stdout,
		stderr:   deps.Stderr,
	}
}

// verbose reports whether errors should be shown with their full chain.
func (a *App) verbose() bool {
	return a.flags.verbosity > 0
}

// workDir returns the absolute working directory for loading.
func (a *App) workDir() (string, error) {
	dir := a.flags.workDir
	if dir == "" {
		return os.Getwd()
	}
	return filepath.Abs(dir)
}

// loadConfig loads the configuration and applies flag overrides on top.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	wd, err := a.workDir()
	if err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}

	cfg, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: a.flags.configPath,
		WorkDir:        wd,
		Fs:             a.Fs,
		Getenv:         a.Getenv,
	})
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Err: err}
	}

	if a.flags.verbosity > 0 {
		cfg.Verbosity = min(config.Verbosity(a.flags.verbosity), config.MaxVerbosity)
	}
	if a.flags.onCycle != "" {
		cfg.OnCycle = modload.CyclePolicy(a.flags.onCycle)
	}
	if len(a.flags.searchPath) > 0 {
		cfg.SearchPath = a.flags.searchPath
	}
	if a.flags.logFormat != "" {
		cfg.Log.Format = config.LogFormat(a.flags.logFormat)
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, &ExitError{Code: ExitUsage, Err: issue.NewErrorContext().
			WithOperation("apply command-line flags").
			WithSuggestion("Run 'modload --help' for the accepted values").
			Wrap(errors.Join(errs...)).
			BuildError()}
	}

	return cfg, nil
}

// newLoader builds a loader from the effective configuration.
func (a *App) newLoader(ctx context.Context) (*modload.Loader, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	wd, err := a.workDir()
	if err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}

	logger := newLogger(a.stderr, cfg.Log.Format, cfg.Verbosity)

	return modload.New(modload.Options{
		Engine:     modscript.New(logger),
		Builtins:   a.Builtins,
		Fs:         a.Fs,
		WorkDir:    wd,
		SearchPath: cfg.SearchPath,
		Suffixes:   cfg.SuffixStrings(),
		NativeExt:  string(cfg.NativeExt),
		Manifest:   cfg.Manifest.Options(),
		OnCycle:    cfg.OnCycle,
		Verbosity:  int(cfg.Verbosity),
		Logger:     logger,
	})
}

// loadFailed wraps a loader error for display and sets the exit code.
func loadFailed(err error, operation, specifier string) error {
	return &ExitError{Code: ExitLoadFailed, Err: issue.ForLoad(err, operation, specifier)}
}
