package server

import (
	"fmt"
	"log/slog"

	"github.com/sakif/webconsole/internal/config"
	"github.com/sakif/webconsole/internal/executor"
	"github.com/sakif/webconsole/internal/executor/docker"
	"github.com/sakif/webconsole/internal/executor/jsvm"
)

// NewScriptRunner builds the JavaScript runner named by cfg.Runner. The
// returned close function releases whatever the runner holds and is never
// nil.
//
// A docker runner that cannot reach the daemon falls back to the embedded
// runner with a warning, so the console keeps working on machines without
// Docker.
func NewScriptRunner(cfg config.Config, logger *slog.Logger) (executor.ScriptRunner, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Runner {
	case "", config.RunnerGoja:
		return jsvm.New(jsvm.WithLogger(logger)), noop, nil

	case config.RunnerDocker:
		runner, err := docker.New(cfg.Docker, logger)
		if err != nil {
			logger.Warn("docker runner unavailable, using the embedded runner",
				slog.String("error", err.Error()),
			)
			return jsvm.New(jsvm.WithLogger(logger)), noop, nil
		}
		return runner, runner.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown runner %q", cfg.Runner)
	}
}
