package artifact

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-ai/stratum/pkg/bus"
	"github.com/stratum-ai/stratum/pkg/mcp"
)

type fakeLister struct {
	tools     []mcp.ToolInfo
	prompts   []mcp.PromptInfo
	resources []mcp.ResourceInfo
	err       error
	delay     time.Duration
	calls     int
}

func (f *fakeLister) ListTools(ctx context.Context) ([]mcp.ToolInfo, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.tools, f.err
}

func (f *fakeLister) ListPrompts(ctx context.Context) ([]mcp.PromptInfo, error) {
	return f.prompts, f.err
}

func (f *fakeLister) ListResources(ctx context.Context) ([]mcp.ResourceInfo, error) {
	return f.resources, f.err
}

type fakeSource struct {
	listers map[string]*fakeLister
}

func (f *fakeSource) ServerNames() []string {
	names := make([]string, 0, len(f.listers))
	for name := range f.listers {
		names = append(names, name)
	}
	return names
}

func (f *fakeSource) Lister(name string) Lister {
	l, ok := f.listers[name]
	if !ok {
		return nil
	}
	return l
}

func sampleCollection() Collection {
	return Collection{
		Tools: []mcp.ToolInfo{
			{Name: "search", Description: "Search docs", InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string"},
				},
			}},
		},
		Prompts: []mcp.PromptInfo{
			{Name: "summarize", Arguments: []mcp.PromptArgument{{Name: "topic", Required: true}}},
		},
		Resources: []mcp.ResourceInfo{
			{URI: "doc://guide", Name: "guide", MIMEType: "text/plain"},
		},
	}
}

func TestCacheDeepCopyIsolation(t *testing.T) {
	cache := NewCache()
	cache.Set("srv", sampleCollection())

	got, ok := cache.Get("srv")
	require.True(t, ok)

	// Mutate everything the caller can reach.
	got.Tools[0].Name = "mutated"
	got.Tools[0].InputSchema["type"] = "mutated"
	got.Prompts[0].Arguments[0].Name = "mutated"
	got.Resources[0].URI = "mutated"

	fresh, ok := cache.Get("srv")
	require.True(t, ok)
	assert.Equal(t, "search", fresh.Tools[0].Name)
	assert.Equal(t, "object", fresh.Tools[0].InputSchema["type"])
	assert.Equal(t, "topic", fresh.Prompts[0].Arguments[0].Name)
	assert.Equal(t, "doc://guide", fresh.Resources[0].URI)
}

func TestCacheChangeDetection(t *testing.T) {
	cache := NewCache()
	col := sampleCollection()

	assert.True(t, cache.HasChanged("srv", col), "absent entry counts as changed")

	cache.Set("srv", col)
	assert.False(t, cache.HasChanged("srv", sampleCollection()), "structurally equal collection is unchanged")

	modified := sampleCollection()
	modified.Tools[0].Description = "different"
	assert.True(t, cache.HasChanged("srv", modified))
}

func TestCollectionEqualNormalizesEmpty(t *testing.T) {
	assert.True(t, Collection{}.Equal(Collection{Tools: []mcp.ToolInfo{}}))
}

func TestRepositoryRetriesOnError(t *testing.T) {
	lister := &fakeLister{err: fmt.Errorf("transient")}
	source := &fakeSource{listers: map[string]*fakeLister{"srv": lister}}
	repo := NewRepository(source, WithFetchRetries(2, time.Millisecond))

	col := repo.GetServerArtifacts(context.Background(), "srv", true, time.Second)
	assert.True(t, col.IsEmpty())
	assert.Equal(t, 3, lister.calls, "initial attempt plus two retries")
}

func TestRepositoryTimeoutReturnsEmpty(t *testing.T) {
	lister := &fakeLister{delay: time.Second, tools: sampleCollection().Tools}
	source := &fakeSource{listers: map[string]*fakeLister{"srv": lister}}
	repo := NewRepository(source, WithFetchRetries(0, time.Millisecond))

	start := time.Now()
	col := repo.GetServerArtifacts(context.Background(), "srv", false, 30*time.Millisecond)
	assert.True(t, col.IsEmpty(), "timeout downgrades to empty, never errors")
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRepositoryDisconnectedServerIsEmpty(t *testing.T) {
	source := &fakeSource{listers: map[string]*fakeLister{}}
	repo := NewRepository(source)

	col := repo.GetServerArtifacts(context.Background(), "ghost", true, time.Second)
	assert.True(t, col.IsEmpty())
}

func TestManagerPublishesArtifactsFetched(t *testing.T) {
	sample := sampleCollection()
	lister := &fakeLister{tools: sample.Tools, prompts: sample.Prompts, resources: sample.Resources}
	source := &fakeSource{listers: map[string]*fakeLister{"srv": lister}}

	b := bus.New()
	var events []bus.ArtifactsFetched
	b.Subscribe(bus.EventArtifactsFetched, bus.Func(func(e bus.Event) {
		events = append(events, e.(bus.ArtifactsFetched))
	}))

	mgr := NewManager(NewRepository(source), NewCache(), b)

	mgr.RefreshServer(context.Background(), "srv")
	require.Len(t, events, 1)
	assert.True(t, events[0].Changed, "first fetch always counts as changed")
	assert.Equal(t, "srv", events[0].ServerName())

	mgr.RefreshServer(context.Background(), "srv")
	require.Len(t, events, 2)
	assert.False(t, events[1].Changed, "identical refetch is unchanged")
}

func TestManagerAggregation(t *testing.T) {
	colA := Collection{
		Prompts:   []mcp.PromptInfo{{Name: "summarize"}, {Name: "review"}},
		Resources: []mcp.ResourceInfo{{URI: "doc://a", Name: "a"}},
	}
	colB := Collection{
		Prompts:   []mcp.PromptInfo{{Name: "summarize", Description: "from b"}},
		Resources: []mcp.ResourceInfo{{URI: "doc://b", Name: "b"}},
	}

	cache := NewCache()
	cache.Set("alpha", colA)
	cache.Set("beta", colB)
	mgr := NewManager(NewRepository(&fakeSource{}), cache, nil)

	byServer := mgr.ResourceURIsByServer()
	assert.Equal(t, map[string][]string{
		"alpha": {"doc://a"},
		"beta":  {"doc://b"},
	}, byServer)

	assert.Len(t, mgr.AllResources(), 2)
	assert.Equal(t, []string{"review", "summarize"}, mgr.CommandNames())

	// First match in sorted server order wins.
	prompt, server, ok := mgr.FindPrompt("summarize")
	require.True(t, ok)
	assert.Equal(t, "alpha", server)
	assert.Empty(t, prompt.Description)

	_, _, ok = mgr.FindPrompt("missing")
	assert.False(t, ok)

	res, server, ok := mgr.FindResource("b")
	require.True(t, ok)
	assert.Equal(t, "beta", server)
	assert.Equal(t, "doc://b", res.URI)
}
