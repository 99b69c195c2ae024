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

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/stratum-ai/stratum/pkg/approval"
	"github.com/stratum-ai/stratum/pkg/queue"
	"github.com/stratum-ai/stratum/pkg/runtime"
)

// ChatCmd starts an interactive chat session.
type ChatCmd struct{}

func (c *ChatCmd) Run(cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}
	cleanup, err := cli.initLogger(cfg, true)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	reader := bufio.NewReader(os.Stdin)

	rt, err := runtime.New(cfg, runtime.WithStatusSink(&terminalSink{out: os.Stderr}))
	if err != nil {
		return fmt.Errorf("failed to build runtime: %w", err)
	}
	rt.Approvals().SetCallback(stdinApprover(rt.Approvals(), reader))

	if err := rt.Start(ctx); err != nil {
		return err
	}
	defer rt.Stop(context.Background())

	printWelcome(rt)

	active, err := rt.Session(ctx)
	if err != nil {
		return err
	}

	for ctx.Err() == nil {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		response, err := active.RunQuery(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Printf("\n%s\n\n", response)
	}
	return nil
}

func printWelcome(rt *runtime.Runtime) {
	servers := rt.Fleet().ServerNames()
	fmt.Printf("stratum chat - %d server(s), %d tool(s)\n",
		len(servers), len(rt.Registry().ListTools()))
	if commands := rt.Artifacts().CommandNames(); len(commands) > 0 {
		fmt.Printf("commands: /%s\n", strings.Join(commands, " /"))
	}
	fmt.Println(`type "exit" to leave`)
	fmt.Println()
}

// stdinApprover prompts on the terminal and resolves the request inline.
// Queries run synchronously in the read loop, so the prompt never races
// with regular input.
func stdinApprover(m *approval.Manager, reader *bufio.Reader) approval.Callback {
	return func(req approval.Request) {
		fmt.Printf("\n[approval] %s\n", req.Title)
		if req.Details != "" {
			fmt.Println(req.Details)
		}
		fmt.Print("approve? [Y/n] ")

		line, err := reader.ReadString('\n')
		if err != nil {
			_ = m.SubmitResponse(approval.Response{RequestID: req.ID, Cancelled: true})
			return
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		approved := answer == "" || answer == "y" || answer == "yes"
		_ = m.SubmitResponse(approval.Response{RequestID: req.ID, Approved: approved})
	}
}

// terminalSink renders status updates on stderr, keeping stdout for
// conversation output.
type terminalSink struct {
	out io.Writer
}

func (s *terminalSink) Apply(update queue.StatusUpdate) {
	switch update.Kind {
	case queue.StatusKindConnection:
		fmt.Fprintf(s.out, "* %s: %s\n", update.ServerName, update.Message)
	case queue.StatusKindProgress:
		fmt.Fprintf(s.out, "* %s: %s\n", update.ServerName, update.Message)
	case queue.StatusKindArtifacts:
		fmt.Fprintf(s.out, "* %s: artifacts refreshed\n", update.ServerName)
	}
}
