package main

import (
	"fmt"
	"os"

	"github.com/BearBump/DriverPortal/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand(cli.DialGRPC)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
