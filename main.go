package main

import (
	"os"

	"github.com/adalundhe/txrank/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
