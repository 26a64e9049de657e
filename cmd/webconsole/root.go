package main

import (
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sakif/webconsole/internal/config"
)

// app carries what the commands read from the outside world, so tests can
// swap in an in-memory filesystem and a fixed environment.
type app struct {
	fs         afero.Fs
	getenv     func(string) string
	configPath string
}

func newApp(fs afero.Fs, getenv func(string) string) *app {
	return &app{fs: fs, getenv: getenv}
}

func (a *app) loadConfig() (config.Config, error) {
	path := a.configPath
	if path == "" {
		path = a.getenv(config.PathEnv)
	}
	return config.Load(a.fs, path, a.getenv)
}

func (a *app) logger(cfg config.Config, cmd *cobra.Command) *slog.Logger {
	return cfg.Log.NewLogger(cmd.ErrOrStderr())
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "webconsole",
		Short: "Mock code console for JavaScript and C",
		Long: `webconsole - a browser code console's execution engine on the command line.

JavaScript is evaluated with a capturing console object. C is never
compiled: its output is synthesized from the printf calls in the source.
Other catalog languages answer with a "coming soon" notice.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (default $"+config.PathEnv+")")

	root.AddCommand(
		newRunCmd(a),
		newLanguagesCmd(),
		newServeCmd(a),
	)
	return root
}
