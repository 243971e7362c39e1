package main

import (
	"os"

	"github.com/modelrelay/modelrelay/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
