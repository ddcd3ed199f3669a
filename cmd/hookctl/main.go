// Command hookctl is a thin client for inspecting and probing a running
// hook group from outside any process that is itself a hook: list
// connected peers, or watch a topic pattern and print every matching
// event as it arrives.
package main

import (
	"fmt"
	"os"

	"github.com/dyluth/hookbus/cmd/hookctl/commands"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	commands.SetVersionInfo(version, commit)
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
