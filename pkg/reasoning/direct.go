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

package reasoning

import "context"

// DirectStrategy is a single LLM call with tool tracking. On escalation
// retries it prepends the tracker's compact digest so the model sees
// what already happened.
type DirectStrategy struct {
	executor *Executor
}

// NewDirectStrategy creates the DIRECT strategy.
func NewDirectStrategy(executor *Executor) *DirectStrategy {
	return &DirectStrategy{executor: executor}
}

func (s *DirectStrategy) Name() Strategy { return StrategyDirect }

func (s *DirectStrategy) Execute(ctx context.Context, query string, analysis *ComplexityAnalysis, tracker *Tracker, cb *Callbacks) (string, error) {
	if cb != nil {
		cb.emit(cb.OnDirectExecution)
	}

	effective := query
	if tracker != nil && len(tracker.Attempts()) > 1 {
		if digest := tracker.ToCompactContext(); digest != "" {
			effective = digest + "\n\n" + query
		}
	}

	return s.executor.Execute(ctx, effective, tracker)
}

var _ ExecutionStrategy = (*DirectStrategy)(nil)
