package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"finchat/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeProvider answers from a queue and records every request.
type fakeProvider struct {
	replies  []string
	err      error
	failAt   int
	requests []llm.Request
}

func (p *fakeProvider) Complete(_ context.Context, req llm.Request) (string, error) {
	p.requests = append(p.requests, req)
	if p.err != nil && len(p.requests) == p.failAt {
		return "", p.err
	}
	reply := p.replies[0]
	p.replies = p.replies[1:]
	return reply, nil
}

func (p *fakeProvider) Close() error { return nil }
func (p *fakeProvider) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{}
}

var long = strings.Repeat("S&P 500 closed up 1.2 percent. ", 3)

func TestFilterRelevant(t *testing.T) {
	p := &fakeProvider{replies: []string{
		"IRRELEVANT",
		"  " + long + "  ",
		"too short",
		strings.Repeat("x", 50),
		strings.Repeat("y", 51),
	}}
	a := New(p, DefaultOptions(), zap.NewNop())

	kept, err := a.FilterRelevant(context.Background(), []string{"a", "b", "c", "d", "e"}, "markets")
	require.NoError(t, err)
	assert.Equal(t, []string{strings.TrimSpace(long), strings.Repeat("y", 51)}, kept)

	require.Len(t, p.requests, 5)
	assert.Contains(t, p.requests[1].Prompt, "FRAGMENT:\nb\n")
	assert.Contains(t, p.requests[1].Prompt, "markets")
	assert.Equal(t, 300, p.requests[0].MaxTokens)
	assert.InDelta(t, 0.3, p.requests[0].Temperature, 1e-6)
}

func TestFilterRelevant_AllDropped(t *testing.T) {
	p := &fakeProvider{replies: []string{"IRRELEVANT", "irrelevant"}}
	kept, err := New(p, DefaultOptions(), zap.NewNop()).FilterRelevant(context.Background(), []string{"a", "b"}, "q")
	require.NoError(t, err)
	assert.Empty(t, kept)
	assert.NotNil(t, kept)
}

func TestFilterRelevant_RejectionMarkerIsExact(t *testing.T) {
	opts := DefaultOptions()
	opts.MinFragmentLength = 0
	p := &fakeProvider{replies: []string{"IRRELEVANT", "Irrelevant", " IRRELEVANT\n"}}

	kept, err := New(p, opts, zap.NewNop()).FilterRelevant(context.Background(), []string{"a", "b", "c"}, "q")
	require.NoError(t, err)
	assert.Equal(t, []string{"Irrelevant"}, kept)
}

func TestFilterRelevant_ErrorReturnsOriginals(t *testing.T) {
	p := &fakeProvider{replies: []string{long}, err: errors.New("quota"), failAt: 2}
	originals := []string{"first", "second", "third"}

	kept, err := New(p, DefaultOptions(), zap.NewNop()).FilterRelevant(context.Background(), originals, "q")
	require.Error(t, err)
	assert.Equal(t, originals, kept)
	assert.Len(t, p.requests, 2)
}

func TestSynthesize(t *testing.T) {
	p := &fakeProvider{replies: []string{"  The Dow closed flat.\n"}}
	a := New(p, DefaultOptions(), zap.NewNop())

	answer, err := a.Synthesize(context.Background(), "How did the Dow do?", []string{"Dow flat", "Nasdaq up"})
	require.NoError(t, err)
	assert.Equal(t, "The Dow closed flat.", answer)

	req := p.requests[0]
	assert.Equal(t, SystemInstruction, req.System)
	assert.Contains(t, req.Prompt, "Dow flat\n\nNasdaq up")
	assert.Contains(t, req.Prompt, "How did the Dow do?")
	assert.Equal(t, 500, req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 1e-6)
}

func TestSynthesize_Errors(t *testing.T) {
	_, err := New(&fakeProvider{replies: []string{"   "}}, DefaultOptions(), zap.NewNop()).
		Synthesize(context.Background(), "q", nil)
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)

	_, err = New(&fakeProvider{err: errors.New("down"), failAt: 1}, DefaultOptions(), zap.NewNop()).
		Synthesize(context.Background(), "q", nil)
	assert.Error(t, err)
}

func TestFallbackAnswer(t *testing.T) {
	assert.Equal(t, "No relevant information was found for your question.", FallbackAnswer(nil, 3, 200))

	got := FallbackAnswer([]string{"one", strings.Repeat("é", 10), "three", "four"}, 3, 5)
	assert.Equal(t, "Based on the available financial information:\n\n- one\n\n- ééééé...\n\n- three", got)
}
