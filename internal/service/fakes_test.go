package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finchat/internal/vectorstore"
)

// callLog records the order in which collaborators are used.
type callLog struct {
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

type fakeFetcher struct {
	log   *callLog
	pages map[string]string
	fail  string
}

func (f *fakeFetcher) FetchText(_ context.Context, url string) (string, error) {
	f.log.add("fetch %s", url)
	if url == f.fail {
		return "", errors.New("connection reset")
	}
	return f.pages[url], nil
}

// fakeEmbedder maps each text to a one-dimensional vector of its length.
type fakeEmbedder struct {
	log        *callLog
	failOnCall int
	calls      int
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	e.log.add("embed %d", len(texts))
	if e.calls == e.failOnCall {
		return nil, errors.New("embedding quota exceeded")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (e *fakeEmbedder) Dimensions() int { return 1 }
func (e *fakeEmbedder) Model() string   { return "fake" }
func (e *fakeEmbedder) Close() error    { return nil }

type fakeStore struct {
	log      *callLog
	upserted []vectorstore.Record
	matches  []vectorstore.Match
	queryK   int
	failOn   string
}

func (s *fakeStore) Upsert(_ context.Context, records []vectorstore.Record) error {
	s.log.add("upsert %d", len(records))
	if s.failOn == "upsert" {
		return errors.New("index unavailable")
	}
	s.upserted = append(s.upserted, records...)
	return nil
}

func (s *fakeStore) Query(_ context.Context, _ []float32, topK int) ([]vectorstore.Match, error) {
	s.log.add("query %d", topK)
	s.queryK = topK
	if s.failOn == "query" {
		return nil, errors.New("index unavailable")
	}
	return s.matches, nil
}

func (s *fakeStore) Clear(_ context.Context) error {
	s.log.add("clear")
	return nil
}

type fakeAdvisor struct {
	log        *callLog
	filterErr  error
	answerErr  error
	dropPrefix string
}

func (a *fakeAdvisor) FilterRelevant(_ context.Context, fragments []string, topic string) ([]string, error) {
	a.log.add("filter %d", len(fragments))
	if a.filterErr != nil {
		return fragments, a.filterErr
	}
	kept := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if a.dropPrefix != "" && strings.HasPrefix(f, a.dropPrefix) {
			continue
		}
		kept = append(kept, "improved: "+f)
	}
	return kept, nil
}

func (a *fakeAdvisor) Synthesize(_ context.Context, question string, fragments []string) (string, error) {
	a.log.add("synthesize %d", len(fragments))
	if a.answerErr != nil {
		return "", a.answerErr
	}
	return fmt.Sprintf("answer to %q from %d fragments", question, len(fragments)), nil
}
