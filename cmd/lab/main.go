// Package main starts the lab web service process lifecycle.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	labcmd "github.com/louisbranch/smartlab/internal/cmd/lab"
	entrypoint "github.com/louisbranch/smartlab/internal/platform/cmd"
	"github.com/louisbranch/smartlab/internal/platform/config"
)

func main() {
	cfg, err := labcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceLab))
	ctx, stop := entrypoint.SignalContext(context.Background())
	defer stop()

	if err := labcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
