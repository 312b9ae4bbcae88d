package main

import (
	"context"
	"flag"
	"os"

	"github.com/louisbranch/healinghome/internal/platform/config"
	"github.com/louisbranch/healinghome/internal/tools/scriptscheck"
)

func main() {
	cfg, err := scriptscheck.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	if err := scriptscheck.Run(context.Background(), cfg, os.Stdout); err != nil {
		config.Exitf("Error: %v", err)
	}
}
