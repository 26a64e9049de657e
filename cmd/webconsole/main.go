// Command webconsole runs programs through the mock execution engine from
// the terminal and can start the HTTP server.
//
//	webconsole run hello.js
//	webconsole run -l c -c 'int main(){ printf("hi\n"); }'
//	webconsole languages
//	webconsole serve
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

func main() {
	root := newRootCmd(newApp(afero.NewOsFs(), os.Getenv))
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errScriptFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
