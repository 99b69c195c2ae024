package reasoning

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateResearchComplete(t *testing.T) {
	client := &scriptedLLM{replies: []scriptedReply{textReply(`
Completeness Assessment: COMPLETE
Confidence Score: 0.88
Reasoning: All aspects of the query are covered.
`)}}
	evaluator := NewEvaluator(client)

	result := evaluator.EvaluateResearch(context.Background(), "q", []string{"r1"}, nil)
	assert.True(t, result.IsComplete)
	assert.InDelta(t, 0.88, result.Confidence, 0.001)
	assert.Empty(t, result.AdditionalQueries)
}

func TestEvaluateResearchIncomplete(t *testing.T) {
	client := &scriptedLLM{replies: []scriptedReply{textReply(`
Completeness Assessment: INCOMPLETE
Confidence Score: 0.4
Reasoning: Latency data missing.
Additional Queries Needed:
- latency data for Raft at the edge
- Paxos deployment costs
Missing Aspects:
- real-world benchmarks
`)}}
	evaluator := NewEvaluator(client)

	result := evaluator.EvaluateResearch(context.Background(), "q", []string{"r1"}, nil)
	assert.False(t, result.IsComplete, "INCOMPLETE must not read as COMPLETE")
	assert.Equal(t, []string{"latency data for Raft at the edge", "Paxos deployment costs"}, result.AdditionalQueries)
	assert.Equal(t, []string{"real-world benchmarks"}, result.MissingAspects)
}

func TestEvaluateResearchFallback(t *testing.T) {
	client := &scriptedLLM{replies: []scriptedReply{errorReply(errors.New("api down"))}}
	evaluator := NewEvaluator(client)

	result := evaluator.EvaluateResearch(context.Background(), "q", nil, nil)
	assert.False(t, result.IsComplete)
	assert.InDelta(t, 0.5, result.Confidence, 0.001)
}

func TestEvaluateQualitySufficient(t *testing.T) {
	client := &scriptedLLM{replies: []scriptedReply{textReply(`
Quality Assessment: SUFFICIENT
Confidence Score: 0.85
Reasoning: Accurate and complete.
`)}}
	evaluator := NewEvaluator(client)

	result := evaluator.EvaluateQuality(context.Background(), "q", "resp", StrategyDirect, nil)
	assert.True(t, result.IsComplete)
	assert.InDelta(t, 0.85, result.Confidence, 0.001)
}

func TestEvaluateQualityInsufficient(t *testing.T) {
	client := &scriptedLLM{replies: []scriptedReply{textReply(`
Quality Assessment: INSUFFICIENT
Confidence Score: 0.68
Missing Aspects:
- team size considerations
`)}}
	evaluator := NewEvaluator(client)

	result := evaluator.EvaluateQuality(context.Background(), "q", "resp", StrategyLightPlanning, nil)
	assert.False(t, result.IsComplete)
	assert.InDelta(t, 0.68, result.Confidence, 0.001)
	assert.Equal(t, []string{"team size considerations"}, result.MissingAspects)
}

func TestEvaluateQualityFallbackIsSufficient(t *testing.T) {
	// Sufficient-on-failure keeps escalation from looping forever.
	client := &scriptedLLM{replies: []scriptedReply{errorReply(errors.New("api down"))}}
	evaluator := NewEvaluator(client)

	result := evaluator.EvaluateQuality(context.Background(), "q", "resp", StrategyDirect, nil)
	assert.True(t, result.IsComplete)
	assert.InDelta(t, 0.5, result.Confidence, 0.001)
}

func TestEvaluatorPromptsCarryInputs(t *testing.T) {
	client := &scriptedLLM{}
	evaluator := NewEvaluator(client)

	plan := planOf("step one")
	evaluator.EvaluateResearch(context.Background(), "the query", []string{"first result"}, plan)

	require.GreaterOrEqual(t, client.callCount(), 1)
	prompt := client.calls[0].Messages[0].Text()
	assert.Contains(t, prompt, "the query")
	assert.Contains(t, prompt, "first result")
	assert.Contains(t, prompt, "step one")
}
