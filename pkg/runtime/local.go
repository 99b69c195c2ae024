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

package runtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stratum-ai/stratum/pkg/tools"
)

const builtinSourceName = "builtin"

type currentTimeParams struct {
	Timezone string `json:"timezone,omitempty" jsonschema:"description=IANA timezone name such as Europe/Berlin. Defaults to UTC."`
	Format   string `json:"format,omitempty" jsonschema:"description=Go reference time layout. Defaults to RFC 3339."`
}

type generateIDParams struct {
	Count int `json:"count,omitempty" jsonschema:"description=Number of identifiers to generate, 1 to 20. Defaults to 1."`
}

// builtinToolSource exposes the in-process utility tools that work
// without any MCP server connected.
func builtinToolSource() *tools.LocalToolSource {
	source := tools.NewLocalToolSource(builtinSourceName)

	source.Register(tools.NewLocalTool("current_time",
		"Returns the current date and time, optionally in a given timezone and layout.",
		func(ctx context.Context, params currentTimeParams) (string, error) {
			loc := time.UTC
			if params.Timezone != "" {
				var err error
				loc, err = time.LoadLocation(params.Timezone)
				if err != nil {
					return "", fmt.Errorf("unknown timezone %q: %w", params.Timezone, err)
				}
			}
			layout := params.Format
			if layout == "" {
				layout = time.RFC3339
			}
			return time.Now().In(loc).Format(layout), nil
		}))

	source.Register(tools.NewLocalTool("generate_id",
		"Generates one or more random UUIDv4 identifiers.",
		func(ctx context.Context, params generateIDParams) (string, error) {
			count := params.Count
			if count <= 0 {
				count = 1
			}
			if count > 20 {
				return "", fmt.Errorf("count %d exceeds the limit of 20", count)
			}
			ids := make([]string, count)
			for i := range ids {
				ids[i] = uuid.NewString()
			}
			return strings.Join(ids, "\n"), nil
		}))

	return source
}
