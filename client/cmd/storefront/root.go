package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mallfront/storefront/client/internal/config"
)

// defaultConfigPath is read when --config is not given. Its absence is not
// an error: built-in defaults apply.
const defaultConfigPath = "storefront.yaml"

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	debug      bool

	// fromFile is set when cfg was loaded from configPath, which serve
	// then watches for changes.
	fromFile bool
	cfg      *config.Config

	out    io.Writer
	errOut io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront API client and status board",
		Long: "storefront talks to the storefront backend through the authenticated request pipeline,\n" +
			"manages the local session, and probes backend service health.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(a.errOut, a.debug)
			return a.loadConfig(cmd.Flags().Changed("config"))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath, "path to config file")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newHealthCommand(a),
		newCallCommand(a),
		newLoginCommand(a),
		newLogoutCommand(a),
		newWhoamiCommand(a),
		newServeCommand(a),
	)
	return root
}

// setupLogging installs a JSON slog handler on w. Logs go to stderr so they
// never mix with command output.
func setupLogging(w io.Writer, debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}

// loadConfig reads a.configPath. When the path was not given explicitly and
// the default file does not exist, built-in defaults are used.
func (a *app) loadConfig(explicit bool) error {
	cfg, err := config.Load(a.configPath)
	switch {
	case err == nil:
		a.cfg, a.fromFile = cfg, true
		slog.Debug("config loaded", "path", a.configPath, "backend", cfg.Backend.URL())
		return nil
	case !explicit && errors.Is(err, os.ErrNotExist):
		a.cfg, a.fromFile = config.Default(), false
		slog.Debug("config file absent, using defaults", "path", a.configPath)
		return nil
	default:
		return fmt.Errorf("load config: %w", err)
	}
}
