// Package main is the entry point for the buildhistory application
package main

import (
	"github.com/ethpandaops/buildhistory/cmd"
)

func main() {
	cmd.Execute()
}
