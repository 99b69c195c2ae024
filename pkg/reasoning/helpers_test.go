package reasoning

import (
	"context"
	"sync"

	"github.com/stratum-ai/stratum/pkg/llm"
)

// scriptedLLM replays canned replies in order. Once exhausted it keeps
// returning the last reply.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []scriptedReply
	next    int
	calls   []llm.Request
}

type scriptedReply struct {
	text   string
	blocks []llm.ContentBlock
	err    error
}

func textReply(text string) scriptedReply { return scriptedReply{text: text} }

func errorReply(err error) scriptedReply { return scriptedReply{err: err} }

func (f *scriptedLLM) CreateMessage(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)

	if len(f.replies) == 0 {
		return &llm.Response{Content: []llm.ContentBlock{llm.TextBlock("ok")}}, nil
	}
	reply := f.replies[f.next]
	if f.next < len(f.replies)-1 {
		f.next++
	}
	if reply.err != nil {
		return nil, reply.err
	}
	blocks := reply.blocks
	if blocks == nil {
		blocks = []llm.ContentBlock{llm.TextBlock(reply.text)}
	}
	return &llm.Response{Content: blocks, StopReason: "end_turn"}, nil
}

func (f *scriptedLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// routedLLM hands every request to a test-supplied function, for flows
// where interleaved component calls make positional scripting brittle.
type routedLLM struct {
	route func(req llm.Request) (*llm.Response, error)
}

func (f *routedLLM) CreateMessage(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return f.route(req)
}

func textResponse(text string) *llm.Response {
	return &llm.Response{Content: []llm.ContentBlock{llm.TextBlock(text)}, StopReason: "end_turn"}
}
