package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ameistad/carenote/internal/carenoted"
	"github.com/ameistad/carenote/internal/constants"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	configPath := flag.String("config", "", "Path to the server config file")
	flag.Parse()

	debugEnv := os.Getenv(constants.EnvVarDebug) == "true"
	debug := *debugFlag || debugEnv

	if err := carenoted.RunWithSignals(carenoted.Options{ConfigPath: *configPath, Debug: debug}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
