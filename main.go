package main

import (
	"fmt"
	"os"

	"github.com/tyemirov/monorun/cmd/cli"
	"github.com/tyemirov/monorun/internal/exitcode"
)

const (
	exitErrorTemplateConstant = "%v\n"
)

// main executes the monorun command-line application and exits with the
// recorded process exit status.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		exitcode.Shared().RaiseAtLeast(1)
	}

	os.Exit(exitcode.Shared().CodeOrZero())
}
