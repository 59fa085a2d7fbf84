package main

import (
	"fmt"
	"os"

	cmds "github.com/rollkit/fastlane/cmd/fastlaned/cmd"
)

func main() {
	if err := cmds.NewRootCmd().Execute(); err != nil {
		// Print to stderr and exit with error
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
