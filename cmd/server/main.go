// Command server runs the web console HTTP API.
//
// Configuration comes from the YAML file named by WEBCONSOLE_CONFIG, if
// any, and then from environment variables; see internal/config.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sakif/webconsole/internal/config"
	"github.com/sakif/webconsole/internal/server"
)

func main() {
	cfg, err := config.FromEnvironment("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if err := server.Run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
