package main

import (
	"os"

	"github.com/couchcryptid/outage-chain-etl/cmd/outagectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
