// Command loadplan builds, validates and records ORM load plans from CUE
// entity mappings.
//
// Usage:
//
//	loadplan build <mappings-dir> --root Order [--override path=style[:size]] [--record]
//	loadplan validate <mappings-dir>
//	loadplan history [--root Order] [--limit 20]
//	loadplan show <build-id>
//	loadplan test <scenario-file|scenarios-dir>... [--update]
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/loadplan/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Commands write their own coded output; report only errors that
		// never reached a formatter (flag parsing, argument counts).
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
