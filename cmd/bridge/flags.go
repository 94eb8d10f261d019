// flags.go — CLI flag definitions for the bridge binary (SPEC_FULL §8).
package main

import "github.com/jessevdk/go-flags"

// Options are the bridge binary's command-line flags. Corresponding
// environment variables (PORT, DATA_DIR, MCP_STARTUP_TIMEOUT_MS,
// MCP_STDIO_MODE) are read directly in main.go so a flag always wins when
// both are set, matching go-flags' own env-default precedence.
type Options struct {
	Mode       string `long:"mode" choice:"tsx" choice:"dist" choice:"nx" default:"dist" description:"how the paired browser agent was launched; informational, logged at startup"`
	DryRun     bool   `long:"dry-run" description:"validate configuration and exit without binding a port"`
	Standalone bool   `long:"standalone" description:"spawn (or attach to) a background HTTP+WebSocket server instead of running one in this process"`
	Stop       bool   `long:"stop" description:"stop a running standalone server on --port and exit"`
	Port       int    `long:"port" env:"PORT" default:"8065" description:"loopback port for the HTTP+WebSocket ingest transport"`
	DataDir    string `long:"data-dir" env:"DATA_DIR" description:"override the runtime data directory (sqlite db, lockfile, logs)"`
	Debug      bool   `long:"debug" description:"enable debug-level logging"`
}

// parseFlags parses os.Args into Options, exiting the process on --help or
// a parse error (go-flags' default behavior).
func parseFlags(args []string) (*Options, error) {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	return &opts, nil
}
