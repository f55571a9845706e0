// m9aup - M9A update assistant
// Source: https://github.com/m9a-tools/m9aup

package main

import (
	"os"

	"github.com/m9a-tools/m9aup/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
