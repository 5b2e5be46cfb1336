package main

import (
	"os"

	servecmder "github.com/papercomputeco/askbase/cmd/askbase/serve"
)

func main() {
	cmd := servecmder.NewServeCmd()
	cmd.Use = "askbaseapi"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .askbase/ config directory")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
