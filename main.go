package main

import (
	"os"

	"github.com/nlweb/chatpanel/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
