// Package advisor post-processes retrieved fragments with an LLM: it filters
// them for relevance and writes the final answer.
package advisor

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"finchat/internal/llm"

	"go.uber.org/zap"
)

// Options tunes the two completion calls.
type Options struct {
	MinFragmentLength int // replies of this many characters or fewer are dropped
	FilterMaxTokens   int
	FilterTemperature float32
	AnswerMaxTokens   int
	AnswerTemperature float32
}

// DefaultOptions matches the production prompt settings.
func DefaultOptions() Options {
	return Options{
		MinFragmentLength: 50,
		FilterMaxTokens:   300,
		FilterTemperature: 0.3,
		AnswerMaxTokens:   500,
		AnswerTemperature: 0.7,
	}
}

type Advisor struct {
	provider llm.Provider
	opts     Options
	logger   *zap.Logger
}

func New(provider llm.Provider, opts Options, logger *zap.Logger) *Advisor {
	return &Advisor{provider: provider, opts: opts, logger: logger}
}

// FilterRelevant asks the model about each fragment in turn. Rejected or too
// short replies are dropped and the rest replace their fragment. On any
// error the original fragments are returned together with the error.
func (a *Advisor) FilterRelevant(ctx context.Context, fragments []string, topic string) ([]string, error) {
	kept := make([]string, 0, len(fragments))

	for i, fragment := range fragments {
		reply, err := a.provider.Complete(ctx, llm.Request{
			Prompt:      BuildFilterPrompt(fragment, topic),
			MaxTokens:   a.opts.FilterMaxTokens,
			Temperature: a.opts.FilterTemperature,
		})
		if err != nil {
			return fragments, fmt.Errorf("filter fragment %d: %w", i, err)
		}

		reply = strings.TrimSpace(reply)
		if reply == Irrelevant || utf8.RuneCountInString(reply) <= a.opts.MinFragmentLength {
			a.logger.Debug("Fragment dropped", zap.Int("index", i), zap.Int("reply_length", len(reply)))
			continue
		}
		kept = append(kept, reply)
	}

	return kept, nil
}

// Synthesize writes an answer to question grounded in fragments.
func (a *Advisor) Synthesize(ctx context.Context, question string, fragments []string) (string, error) {
	reply, err := a.provider.Complete(ctx, llm.Request{
		System:      SystemInstruction,
		Prompt:      BuildAnswerPrompt(question, fragments),
		MaxTokens:   a.opts.AnswerMaxTokens,
		Temperature: a.opts.AnswerTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("synthesize answer: %w", err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("synthesize answer: %w", llm.ErrEmptyResponse)
	}
	return reply, nil
}

// FallbackAnswer is the templated summary used when no model answer is
// available: the first limit fragments, each cut to maxLen characters.
func FallbackAnswer(fragments []string, limit, maxLen int) string {
	if len(fragments) == 0 || limit <= 0 {
		return "No relevant information was found for your question."
	}

	var sb strings.Builder
	sb.WriteString("Based on the available financial information:")
	for _, f := range fragments[:min(limit, len(fragments))] {
		sb.WriteString("\n\n- ")
		sb.WriteString(truncate(strings.TrimSpace(f), maxLen))
	}
	return sb.String()
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
