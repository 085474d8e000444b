// Command tinypy compiles CUE-described loop programs to SSA IR and LLVM IR.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/tinypy/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		// Commands print their own diagnostics; cobra usage errors do not.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	os.Exit(cli.GetExitCode(err))
}
