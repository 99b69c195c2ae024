// Copyright 2026 Stratum Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command stratum is the terminal front end for the agent runtime.
//
// Usage:
//
//	stratum chat --config stratum.yaml
//	stratum run "summarize @readme"
//	stratum validate stratum.yaml
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/stratum-ai/stratum/pkg/config"
	"github.com/stratum-ai/stratum/pkg/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Chat     ChatCmd     `cmd:"" default:"1" help:"Start an interactive chat session."`
	Run      RunCmd      `cmd:"" help:"Run a single query and exit."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose)."`
}

// loadConfig resolves the effective configuration: the file when given,
// defaults otherwise.
func (cli *CLI) loadConfig() (*config.Config, error) {
	if cli.Config == "" {
		return config.Default(), nil
	}
	return config.Load(cli.Config)
}

// initLogger applies CLI flags over config file settings. Interactive
// chat logs to a file so slog output does not interleave with the
// conversation.
func (cli *CLI) initLogger(cfg *config.Config, interactive bool) (func(), error) {
	level := cli.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	format := cli.LogFormat
	if format == "" {
		format = cfg.Logging.Format
	}
	path := cli.LogFile
	if path == "" {
		path = cfg.Logging.File
	}
	if path == "" && interactive {
		path = "stratum.log"
	}

	output := os.Stderr
	cleanup := func() {}
	if path != "" {
		file, closeFn, err := logger.OpenLogFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		cleanup = closeFn
	}

	logger.Init(logger.ParseLevel(level), output, format)
	return cleanup, nil
}

func main() {
	_ = godotenv.Load()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("stratum"),
		kong.Description("Stratum - adaptive multi-server MCP agent"),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
