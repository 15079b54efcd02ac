package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"finchat/internal/advisor"
	"finchat/internal/chunker"
	"finchat/internal/embedding"
	"finchat/internal/models"
	"finchat/internal/repository"
	"finchat/internal/scraper"
	"finchat/internal/vectorstore"

	"go.uber.org/zap"
)

// Advisor post-processes retrieved fragments. Nil disables both steps.
type Advisor interface {
	FilterRelevant(ctx context.Context, fragments []string, topic string) ([]string, error)
	Synthesize(ctx context.Context, question string, fragments []string) (string, error)
}

// ChatOptions are the retrieval settings read from configuration.
type ChatOptions struct {
	Sources                []string
	ChunkSize              int
	TopK                   int
	ClearBeforeUpsert      bool
	FallbackFragments      int
	FallbackFragmentLength int
}

type ChatService struct {
	users    repository.UserRepository
	history  repository.HistoryRepository
	fetcher  scraper.Fetcher
	embedder embedding.Embedder
	store    vectorstore.Store
	advisor  Advisor
	opts     ChatOptions
	logger   *zap.Logger
	now      func() time.Time
}

func NewChatService(
	users repository.UserRepository,
	history repository.HistoryRepository,
	fetcher scraper.Fetcher,
	embedder embedding.Embedder,
	store vectorstore.Store,
	adv Advisor,
	opts ChatOptions,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		users:    users,
		history:  history,
		fetcher:  fetcher,
		embedder: embedder,
		store:    store,
		advisor:  adv,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// CanAccess confirms the user exists and returns their chat history.
func (s *ChatService) CanAccess(ctx context.Context, username string) ([]models.Exchange, error) {
	if err := s.requireUser(ctx, username); err != nil {
		return nil, err
	}

	exchanges, err := s.history.List(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return exchanges, nil
}

// Ask runs the retrieval pipeline for question. Steps run in order and
// any failure before post-processing aborts the request.
func (s *ChatService) Ask(ctx context.Context, username, question string) (*models.ChatResponse, error) {
	if err := s.requireUser(ctx, username); err != nil {
		return nil, err
	}

	log := s.logger.With(zap.String("username", username))

	text, err := s.fetchSources(ctx)
	if err != nil {
		return nil, err
	}

	chunks := chunker.Split(text, s.opts.ChunkSize)
	log.Debug("Sources chunked", zap.Int("text_length", len(text)), zap.Int("chunks", len(chunks)))

	vectors, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, &RetrievalError{Stage: StageEmbed, Err: err}
	}
	if len(vectors) != len(chunks) {
		return nil, &RetrievalError{Stage: StageEmbed, Err: fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))}
	}

	if s.opts.ClearBeforeUpsert {
		if err := s.store.Clear(ctx); err != nil {
			return nil, &RetrievalError{Stage: StageClear, Err: err}
		}
	}

	records := make([]vectorstore.Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = vectorstore.Record{ID: vectorstore.ChunkID(i), Vector: vectors[i], Text: chunk}
	}
	if err := s.store.Upsert(ctx, records); err != nil {
		return nil, &RetrievalError{Stage: StageUpsert, Err: err}
	}

	queryVector, err := embedding.EmbedQuery(ctx, s.embedder, question)
	if err != nil {
		return nil, &RetrievalError{Stage: StageEmbedQuery, Err: err}
	}

	matches, err := s.store.Query(ctx, queryVector, s.opts.TopK)
	if err != nil {
		return nil, &RetrievalError{Stage: StageQuery, Err: err}
	}

	fragments := make([]string, len(matches))
	for i, m := range matches {
		fragments[i] = m.Text
	}

	sources := s.filter(ctx, log, fragments, question)
	answer, aiProcessed := s.answer(ctx, log, question, sources)

	resp := &models.ChatResponse{
		Chat:            answer,
		Sources:         sources,
		OriginalChunks:  len(matches),
		ValidatedChunks: len(sources),
		AIProcessed:     aiProcessed,
	}

	if err := s.history.Add(ctx, username, models.Exchange{
		Question:    question,
		Answer:      answer,
		Sources:     sources,
		AIProcessed: aiProcessed,
		AskedAt:     s.now(),
	}); err != nil {
		log.Warn("Failed to record chat history", zap.Error(err))
	}

	log.Info("Question answered",
		zap.Int("chunks", len(chunks)),
		zap.Int("original_chunks", resp.OriginalChunks),
		zap.Int("validated_chunks", resp.ValidatedChunks),
		zap.Bool("ai_processed", aiProcessed))

	return resp, nil
}

func (s *ChatService) requireUser(ctx context.Context, username string) error {
	_, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrUnknownUser
	}
	return fmt.Errorf("failed to look up user: %w", err)
}

// fetchSources returns every source's text followed by a newline, in list order.
func (s *ChatService) fetchSources(ctx context.Context) (string, error) {
	var sb strings.Builder
	for _, url := range s.opts.Sources {
		text, err := s.fetcher.FetchText(ctx, url)
		if err != nil {
			return "", &RetrievalError{Stage: StageFetch, Err: err}
		}
		sb.WriteString(text)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func (s *ChatService) filter(ctx context.Context, log *zap.Logger, fragments []string, question string) []string {
	if s.advisor == nil {
		return fragments
	}

	kept, err := s.advisor.FilterRelevant(ctx, fragments, question)
	if err != nil {
		log.Warn("Fragment filtering failed, using unfiltered fragments", zap.Error(err))
		return fragments
	}
	return kept
}

func (s *ChatService) answer(ctx context.Context, log *zap.Logger, question string, fragments []string) (string, bool) {
	if s.advisor != nil {
		answer, err := s.advisor.Synthesize(ctx, question, fragments)
		if err == nil {
			return answer, true
		}
		log.Warn("Answer synthesis failed, using template", zap.Error(err))
	}
	return advisor.FallbackAnswer(fragments, s.opts.FallbackFragments, s.opts.FallbackFragmentLength), false
}
