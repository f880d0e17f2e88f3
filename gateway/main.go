package main

import (
	"os"

	"github.com/telhawk-systems/hookgate/gateway/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
