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

import "fmt"

// Thresholds are the quality gates per strategy plus the deep iteration
// ceiling. The DEEP gate sits lowest because DEEP is the terminal
// option: its result is returned either way.
type Thresholds struct {
	MinQualityDirect float64
	MinQualityLight  float64
	MinQualityDeep   float64
	MaxIterations    int
}

// DefaultThresholds is the balanced profile.
func DefaultThresholds() Thresholds {
	return Thresholds{MinQualityDirect: 0.6, MinQualityLight: 0.7, MinQualityDeep: 0.5, MaxIterations: 5}
}

var profiles = map[string]Thresholds{
	"strict":     {MinQualityDirect: 0.75, MinQualityLight: 0.8, MinQualityDeep: 0.6, MaxIterations: 7},
	"balanced":   {MinQualityDirect: 0.6, MinQualityLight: 0.7, MinQualityDeep: 0.5, MaxIterations: 5},
	"permissive": {MinQualityDirect: 0.45, MinQualityLight: 0.5, MinQualityDeep: 0.35, MaxIterations: 3},
	"production": {MinQualityDirect: 0.6, MinQualityLight: 0.65, MinQualityDeep: 0.5, MaxIterations: 4},
}

// ThresholdProfile resolves a named profile.
func ThresholdProfile(name string) (Thresholds, error) {
	t, ok := profiles[name]
	if !ok {
		return Thresholds{}, fmt.Errorf("unknown threshold profile %q (want strict, balanced, permissive, or production)", name)
	}
	return t, nil
}

// ThresholdProfileNames lists the available profiles.
func ThresholdProfileNames() []string {
	return []string{"balanced", "permissive", "production", "strict"}
}

// ForStrategy returns the quality gate for a strategy.
func (t Thresholds) ForStrategy(s Strategy) float64 {
	switch s {
	case StrategyDirect:
		return t.MinQualityDirect
	case StrategyLightPlanning:
		return t.MinQualityLight
	default:
		return t.MinQualityDeep
	}
}
