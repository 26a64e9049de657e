package executor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/webconsole/internal/language"
)

// Engine dispatches a request to the strategy of its language.
// It keeps no state between calls and is safe for concurrent use as long as
// its ScriptRunner is.
type Engine struct {
	runner ScriptRunner
	logger *slog.Logger
}

var _ Executor = (*Engine)(nil)

// NewEngine creates an Engine. runner evaluates the dynamic language; with a
// nil runner every JavaScript run ends in a runtime error.
func NewEngine(runner ScriptRunner, logger *slog.Logger) *Engine {
	return &Engine{
		runner: runner,
		logger: logger,
	}
}

// Execute runs req and returns its result. It never panics.
func (e *Engine) Execute(ctx context.Context, req ExecutionRequest) ExecutionResult {
	start := time.Now()
	tag := language.Normalize(req.Language)
	lang, known := language.Lookup(tag)

	var res ExecutionResult
	switch {
	case known && lang.Strategy == language.StrategyDynamic:
		res = e.runDynamic(ctx, req.Code)
	case known && lang.Strategy == language.StrategyPattern:
		res = runPattern(req.Code)
	default:
		name := lang.Name
		if !known {
			name = displayName(req.Language)
		}
		res = unsupported(name)
	}

	res.Language = tag
	res.Duration = time.Since(start)

	e.logger.Debug("execution finished",
		slog.String("language", tag),
		slog.String("status", res.Status.String()),
		slog.Duration("duration", res.Duration),
	)
	return res
}

func displayName(tag string) string {
	if tag = strings.TrimSpace(tag); tag != "" {
		return tag
	}
	return "This language"
}
