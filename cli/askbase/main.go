package main

import (
	"os"

	askbasecmder "github.com/papercomputeco/askbase/cmd/askbase"
)

func main() {
	cmd := askbasecmder.NewAskbaseCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
