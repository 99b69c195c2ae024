package reasoning

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterResultsPassthroughSmall(t *testing.T) {
	client := &scriptedLLM{}
	synth := NewSynthesizer(client)

	results := []string{"a", "b", "c"}
	filtered := synth.FilterResults(context.Background(), "q", results)

	assert.Equal(t, results, filtered)
	assert.Zero(t, client.callCount(), "three or fewer results never hit the LLM")
}

func TestFilterResultsExplicitRankedList(t *testing.T) {
	client := &scriptedLLM{replies: []scriptedReply{textReply(`
The most relevant results are:
1. 4
2. 2
3. 1
`)}}
	synth := NewSynthesizer(client)

	filtered := synth.FilterResults(context.Background(), "q", []string{"r1", "r2", "r3", "r4"})
	assert.Equal(t, []string{"r4", "r2", "r1"}, filtered)
}

func TestFilterResultsScatteredMentions(t *testing.T) {
	client := &scriptedLLM{replies: []scriptedReply{textReply(
		"Result ID: 3 is the strongest. Result ID: 1 adds supporting detail, while Result ID: 3 repeats.",
	)}}
	synth := NewSynthesizer(client)

	filtered := synth.FilterResults(context.Background(), "q", []string{"r1", "r2", "r3", "r4"})
	assert.Equal(t, []string{"r3", "r1"}, filtered, "duplicates collapse, order of first mention wins")
}

func TestFilterResultsClampsToSeven(t *testing.T) {
	var ranking string
	var results []string
	for i := 1; i <= 10; i++ {
		ranking += fmt.Sprintf("%d. %d\n", i, i)
		results = append(results, fmt.Sprintf("r%d", i))
	}
	client := &scriptedLLM{replies: []scriptedReply{textReply(ranking)}}
	synth := NewSynthesizer(client)

	filtered := synth.FilterResults(context.Background(), "q", results)
	assert.Len(t, filtered, 7)
}

func TestFilterResultsFallbackOnLLMFailure(t *testing.T) {
	client := &scriptedLLM{replies: []scriptedReply{errorReply(errors.New("api down"))}}
	synth := NewSynthesizer(client)

	results := []string{"r1", "r2", "r3", "r4", "r5"}
	filtered := synth.FilterResults(context.Background(), "q", results)
	assert.Equal(t, results, filtered)
}

func TestSynthesizeSingleResultPassthrough(t *testing.T) {
	client := &scriptedLLM{}
	synth := NewSynthesizer(client)

	out := synth.Synthesize(context.Background(), "q", []string{"the only answer"})
	assert.Equal(t, "the only answer", out)
	assert.Zero(t, client.callCount())
}

func TestSynthesizeCombinesViaLLM(t *testing.T) {
	client := &scriptedLLM{replies: []scriptedReply{textReply("combined answer")}}
	synth := NewSynthesizer(client)

	out := synth.Synthesize(context.Background(), "q", []string{"a", "b"})
	assert.Equal(t, "combined answer", out)
}

func TestSynthesizeFallbackConcatenation(t *testing.T) {
	client := &scriptedLLM{replies: []scriptedReply{errorReply(errors.New("api down"))}}
	synth := NewSynthesizer(client)

	out := synth.Synthesize(context.Background(), "edge consensus", []string{"raft wins", "paxos is complex"})
	assert.Contains(t, out, "edge consensus")
	assert.Contains(t, out, "1. raft wins")
	assert.Contains(t, out, "2. paxos is complex")
}

func TestSynthesizeEmpty(t *testing.T) {
	synth := NewSynthesizer(&scriptedLLM{})
	require.Empty(t, synth.Synthesize(context.Background(), "q", nil))
}
