package reasoning

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-ai/stratum/pkg/approval"
	"github.com/stratum-ai/stratum/pkg/llm"
)

func TestLoopSimpleQueryHappyPath(t *testing.T) {
	client := routeByPrompt(map[string]func(req llm.Request) (*llm.Response, error){
		"Analyze the complexity": func(req llm.Request) (*llm.Response, error) {
			return textResponse(`Complexity Level: SIMPLE
Recommended Strategy: DIRECT
Estimated Iterations: 1
Confidence: 0.95`), nil
		},
		"Evaluate the quality": func(req llm.Request) (*llm.Response, error) {
			return textResponse("Quality Assessment: SUFFICIENT\nConfidence Score: 0.85"), nil
		},
	}, func(req llm.Request) (*llm.Response, error) {
		return textResponse("4"), nil
	})

	loop := NewLoop(client, NewExecutor(client, nil))
	result, err := loop.Run(context.Background(), "What is 2+2?", nil)
	require.NoError(t, err)

	assert.Equal(t, "4", result.Response)
	assert.Equal(t, StrategyDirect, result.InitialStrategy)
	assert.Equal(t, StrategyDirect, result.FinalStrategy)
	assert.Zero(t, result.Escalations)
	assert.InDelta(t, 0.85, result.QualityScore, 0.001)
	assert.Equal(t, []Strategy{StrategyDirect}, result.Pattern)
}

func TestLoopEscalatesLightToDeep(t *testing.T) {
	qualityCalls := 0
	client := routeByPrompt(map[string]func(req llm.Request) (*llm.Response, error){
		"Analyze the complexity": func(req llm.Request) (*llm.Response, error) {
			return textResponse(`Complexity Level: MEDIUM
Recommended Strategy: LIGHT_PLANNING
Estimated Iterations: 2
Confidence: 0.8`), nil
		},
		"Break the following query": func(req llm.Request) (*llm.Response, error) {
			return textResponse("1. [HIGH] research X\n2. [MEDIUM] research Y"), nil
		},
		"Evaluate the quality": func(req llm.Request) (*llm.Response, error) {
			qualityCalls++
			if qualityCalls == 1 {
				return textResponse("Quality Assessment: INSUFFICIENT\nConfidence Score: 0.68"), nil
			}
			return textResponse("Quality Assessment: SUFFICIENT\nConfidence Score: 0.82"), nil
		},
		"Evaluate whether the accumulated research": func(req llm.Request) (*llm.Response, error) {
			return textResponse("Completeness Assessment: COMPLETE\nConfidence Score: 0.9"), nil
		},
		"Combine the following research results": func(req llm.Request) (*llm.Response, error) {
			return textResponse("deep answer"), nil
		},
	}, func(req llm.Request) (*llm.Response, error) {
		return textResponse("partial finding"), nil
	})

	loop := NewLoop(client, NewExecutor(client, nil))
	result, err := loop.Run(context.Background(), "Compare X and Y and recommend one.", nil)
	require.NoError(t, err)

	assert.Equal(t, StrategyLightPlanning, result.InitialStrategy)
	assert.Equal(t, StrategyDeepReasoning, result.FinalStrategy)
	assert.Equal(t, 1, result.Escalations)
	assert.Equal(t, []Strategy{StrategyLightPlanning, StrategyDeepReasoning}, result.Pattern)
	assert.InDelta(t, 0.82, result.QualityScore, 0.001)
}

func TestLoopStrategySequenceFollowsChain(t *testing.T) {
	// Quality is always insufficient: the loop must walk the full chain
	// and still return the DEEP result.
	client := routeByPrompt(map[string]func(req llm.Request) (*llm.Response, error){
		"Analyze the complexity": func(req llm.Request) (*llm.Response, error) {
			return textResponse("Complexity Level: SIMPLE\nRecommended Strategy: DIRECT\nConfidence: 0.9"), nil
		},
		"Break the following query": func(req llm.Request) (*llm.Response, error) {
			return textResponse("1. [HIGH] only step"), nil
		},
		"Evaluate the quality": func(req llm.Request) (*llm.Response, error) {
			return textResponse("Quality Assessment: INSUFFICIENT\nConfidence Score: 0.1"), nil
		},
		"Evaluate whether the accumulated research": func(req llm.Request) (*llm.Response, error) {
			return textResponse("Completeness Assessment: COMPLETE\nConfidence Score: 0.9"), nil
		},
	}, func(req llm.Request) (*llm.Response, error) {
		return textResponse("attempt output"), nil
	})

	loop := NewLoop(client, NewExecutor(client, nil))
	result, err := loop.Run(context.Background(), "q", nil)
	require.NoError(t, err)

	assert.Equal(t, []Strategy{StrategyDirect, StrategyLightPlanning, StrategyDeepReasoning}, result.Pattern)
	assert.Equal(t, 2, result.Escalations)
	assert.Equal(t, StrategyDeepReasoning, result.FinalStrategy)
	assert.NotEmpty(t, result.Response, "DEEP result returned even below its quality gate")
}

func TestLoopDirectShortcutSkipsAnalyzer(t *testing.T) {
	client := routeByPrompt(map[string]func(req llm.Request) (*llm.Response, error){
		"Analyze the complexity": func(req llm.Request) (*llm.Response, error) {
			t.Fatal("analyzer must not run with the direct shortcut")
			return nil, nil
		},
		"Evaluate the quality": func(req llm.Request) (*llm.Response, error) {
			return textResponse("Quality Assessment: SUFFICIENT\nConfidence Score: 0.9"), nil
		},
	}, func(req llm.Request) (*llm.Response, error) {
		return textResponse("quick answer"), nil
	})

	loop := NewLoop(client, NewExecutor(client, nil), WithDirectShortcut())
	result, err := loop.Run(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, StrategyDirect, result.FinalStrategy)
	assert.Equal(t, "quick answer", result.Response)
}

func TestLoopApprovalOverridesStrategy(t *testing.T) {
	approvals := approval.NewManager()
	approvals.SetCallback(func(req approval.Request) {
		_ = approvals.SubmitResponse(approval.Response{
			RequestID: req.ID,
			Approved:  true,
			Metadata:  map[string]any{"selected_strategy": "DIRECT"},
		})
	})

	client := routeByPrompt(map[string]func(req llm.Request) (*llm.Response, error){
		"Analyze the complexity": func(req llm.Request) (*llm.Response, error) {
			return textResponse("Complexity Level: COMPLEX\nRecommended Strategy: DEEP_REASONING\nConfidence: 0.9"), nil
		},
		"Evaluate the quality": func(req llm.Request) (*llm.Response, error) {
			return textResponse("Quality Assessment: SUFFICIENT\nConfidence Score: 0.9"), nil
		},
	}, func(req llm.Request) (*llm.Response, error) {
		return textResponse("direct answer"), nil
	})

	loop := NewLoop(client, NewExecutor(client, nil), WithStrategyApproval(approvals))
	result, err := loop.Run(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, StrategyDirect, result.InitialStrategy)
	assert.Equal(t, StrategyDirect, result.FinalStrategy)
}

func TestLoopApprovalCancellationAborts(t *testing.T) {
	approvals := approval.NewManager()
	approvals.SetCallback(func(req approval.Request) {
		approvals.CancelRequest(req.ID, "user closed the panel")
	})

	client := routeByPrompt(map[string]func(req llm.Request) (*llm.Response, error){
		"Analyze the complexity": func(req llm.Request) (*llm.Response, error) {
			return textResponse("Complexity Level: MEDIUM\nRecommended Strategy: LIGHT_PLANNING"), nil
		},
	}, func(req llm.Request) (*llm.Response, error) {
		t.Fatal("no strategy may run after cancellation")
		return nil, nil
	})

	loop := NewLoop(client, NewExecutor(client, nil), WithStrategyApproval(approvals))
	_, err := loop.Run(context.Background(), "q", nil)
	assert.Error(t, err)
}

func TestLoopRecordsMetrics(t *testing.T) {
	collector := NewMetricsCollector()
	client := routeByPrompt(map[string]func(req llm.Request) (*llm.Response, error){
		"Analyze the complexity": func(req llm.Request) (*llm.Response, error) {
			return textResponse("Complexity Level: SIMPLE\nRecommended Strategy: DIRECT\nConfidence: 0.9"), nil
		},
		"Evaluate the quality": func(req llm.Request) (*llm.Response, error) {
			return textResponse("Quality Assessment: SUFFICIENT\nConfidence Score: 0.9"), nil
		},
	}, func(req llm.Request) (*llm.Response, error) {
		return textResponse("ok"), nil
	})

	loop := NewLoop(client, NewExecutor(client, nil), WithMetricsCollector(collector))
	_, err := loop.Run(context.Background(), "q", nil)
	require.NoError(t, err)

	summary := collector.Summary()
	assert.Equal(t, 1, summary.Count)
	assert.InDelta(t, 0.9, summary.MeanQuality, 0.001)
	assert.Equal(t, 1, summary.EscalationPatterns["DIRECT"])
}

func TestMetricsCollectorSummary(t *testing.T) {
	collector := NewMetricsCollector()
	collector.Record(QueryMetrics{
		InitialStrategy: StrategyDirect, FinalStrategy: StrategyDirect,
		QualityScore: 0.8, WallTime: 100 * time.Millisecond,
		Pattern: []Strategy{StrategyDirect},
	})
	collector.Record(QueryMetrics{
		InitialStrategy: StrategyDirect, FinalStrategy: StrategyDeepReasoning,
		Escalations: 2, QualityScore: 0.6, WallTime: 300 * time.Millisecond,
		Pattern: []Strategy{StrategyDirect, StrategyLightPlanning, StrategyDeepReasoning},
	})

	summary := collector.Summary()
	assert.Equal(t, 2, summary.Count)
	assert.InDelta(t, 0.7, summary.MeanQuality, 0.001)
	assert.InDelta(t, 1.0, summary.MeanEscalations, 0.001)
	assert.Equal(t, 200*time.Millisecond, summary.MeanLatency)
	assert.Equal(t, 1, summary.EscalationPatterns["DIRECT"])
	assert.Equal(t, 1, summary.EscalationPatterns["DIRECT->LIGHT_PLANNING->DEEP_REASONING"])
	assert.Equal(t, 100*time.Millisecond, summary.PerStrategyLatency[StrategyDirect])
}

func TestThresholdProfiles(t *testing.T) {
	for _, name := range ThresholdProfileNames() {
		profile, err := ThresholdProfile(name)
		require.NoError(t, err, name)
		assert.Greater(t, profile.MinQualityLight, profile.MinQualityDeep,
			"deep gate sits below light for %s", name)
		assert.GreaterOrEqual(t, profile.MaxIterations, 1)
	}

	_, err := ThresholdProfile("nonsense")
	assert.Error(t, err)
}
