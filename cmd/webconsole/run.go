package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sakif/webconsole/internal/executor"
	"github.com/sakif/webconsole/internal/language"
	"github.com/sakif/webconsole/internal/server"
)

// errScriptFailed makes the process exit 1 after a runtime error that has
// already been printed.
var errScriptFailed = errors.New("script failed")

type runOptions struct {
	lang    string
	code    string
	timeout time.Duration
	runner  string
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Run a program and print its console output",
		Long: `Run a program through the mock execution engine.

Code can be provided via:
  - File argument: webconsole run hello.js
  - Inline flag:   webconsole run -l c -c 'printf("hi");'
  - Stdin:         echo 'console.log(1)' | webconsole run

The language comes from --lang, else from the file extension, else
JavaScript. A runtime error is printed to stderr and exits with status 1.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.lang, "lang", "l", "", "Language: javascript, c, ... (default: from file extension)")
	cmd.Flags().StringVarP(&opts.code, "code", "c", "", "Code to execute")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Execution timeout (0 = none)")
	cmd.Flags().StringVar(&opts.runner, "runner", "", "JavaScript runner: goja or docker (default from config)")

	return cmd
}

func (a *app) run(cmd *cobra.Command, args []string, opts runOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if opts.runner != "" {
		cfg.Runner = opts.runner
	}

	var filename string
	if len(args) > 0 {
		filename = args[0]
	}
	source, err := readSource(a.fs, cmd.InOrStdin(), opts.code, filename)
	if err != nil {
		return err
	}
	if strings.TrimSpace(source) == "" {
		return errors.New("no code to run: pass a file, --code or pipe source on stdin")
	}

	tag := opts.lang
	if tag == "" {
		tag = language.Default
		if l, ok := language.FromFilename(filename); ok {
			tag = l.ID
		}
	}

	logger := a.logger(cfg, cmd)
	runner, closeRunner, err := server.NewScriptRunner(cfg, logger)
	if err != nil {
		return err
	}
	defer closeRunner()

	engine := executor.WithTimeout(executor.NewEngine(runner, logger), opts.timeout)
	res := engine.Execute(cmd.Context(), executor.ExecutionRequest{Language: tag, Code: source})

	if res.Status == executor.StatusRuntimeError {
		fmt.Fprintln(cmd.ErrOrStderr(), res.Output)
		return errScriptFailed
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Output)
	return nil
}

// readSource picks the program text: inline code first, then the file,
// then stdin.
func readSource(fs afero.Fs, stdin io.Reader, code, filename string) (string, error) {
	switch {
	case code != "":
		return code, nil
	case filename != "":
		data, err := afero.ReadFile(fs, filename)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", filename, err)
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
}

