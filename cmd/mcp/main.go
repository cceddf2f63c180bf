package main

import (
	"context"
	"flag"
	"log"
	"os"

	mcpcmd "github.com/louisbranch/smartlab/internal/cmd/mcp"
	entrypoint "github.com/louisbranch/smartlab/internal/platform/cmd"
	"github.com/louisbranch/smartlab/internal/platform/config"
)

// main starts the MCP server on stdio or HTTP.
func main() {
	cfg, err := mcpcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	// Logs go to stderr; stdout carries the stdio transport.
	log.SetOutput(os.Stderr)
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceMCP))

	ctx, stop := entrypoint.SignalContext(context.Background())
	defer stop()

	if err := mcpcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve MCP: %v", err)
	}
}
