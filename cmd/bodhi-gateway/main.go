// Command bodhi-gateway runs the inference gateway: it authenticates
// callers, resolves model names to local or remote aliases, and forwards
// OpenAI-compatible requests to either a supervised native inference
// process or an upstream API.
package main

import (
	"flag"
	"fmt"
	"os"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "configs/bodhi-gateway.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("bodhi-gateway", version)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
