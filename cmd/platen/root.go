package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/platen/pkg/config"
	"github.com/chazu/platen/pkg/logging"
	"github.com/chazu/platen/pkg/workspace"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	logLevel   string
	logFormat  string
	cells      int

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "platen",
		Short:         "Evaluate and inspect Platen scene scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	f.StringVar(&opts.logFormat, "log-format", "", "log format (console or json)")
	f.IntVar(&opts.cells, "cells", 0, "marching cubes resolution for curved solids")

	root.AddCommand(
		newEvalCmd(opts),
		newPickCmd(opts),
		newExportCmd(opts),
		newValidateCmd(opts),
	)
	return root
}

// setup loads the config, applies flag overrides and installs the logger.
func (o *options) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return err
		}
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if o.cells > 0 {
		cfg.Kernel.MeshCells = o.cells
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logging.SetLogger(&logger)
	return nil
}

// open evaluates the scene file at path in a new workspace and waits for its
// difference groups. The caller closes the workspace.
func (o *options) open(path string) (*workspace.Workspace, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ws, err := workspace.New(o.cfg)
	if err != nil {
		return nil, err
	}
	_, evalErrs, err := ws.Evaluate(string(source))
	if err == nil && len(evalErrs) > 0 {
		errs := make([]error, len(evalErrs))
		for i, e := range evalErrs {
			errs[i] = fmt.Errorf("%s:%w", path, e)
		}
		err = errors.Join(errs...)
	}
	if err != nil {
		ws.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.Boolean.Timeout)
	defer cancel()
	if err := ws.Wait(ctx); err != nil {
		ws.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ws, nil
}
