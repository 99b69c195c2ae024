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

// ExecutionStrategy is one named execution path over the LLM. Execute
// returns buffered response text; quality checking happens in the loop.
type ExecutionStrategy interface {
	Name() Strategy
	Execute(ctx context.Context, query string, analysis *ComplexityAnalysis, tracker *Tracker, cb *Callbacks) (string, error)
}
