// Package retrieval ties embedding, vector search, the document store, and text generation
// into the feedback submission and summary flows.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/generate"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/models"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/storage"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/vector"
	"github.com/Nikhil-Zer0/PublicService-backend/pkg/utils"
)

// ErrNotFound is returned by Summarize when no feedback exists for the requested key.
var ErrNotFound = errors.New("no feedbacks found")

// Neighbor counts used by the two flows.
const (
	DefaultSubmitTopK  = 3
	DefaultSummaryTopK = 2
)

// Encoder embeds text.
type Encoder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// KeywordIndexer receives stored records for keyword search.
type KeywordIndexer interface {
	Index(ctx context.Context, rec *models.Record) error
}

// Orchestrator runs the submit and summary flows. It holds no locks of its own; ordering of
// index appends is owned by the vector index.
type Orchestrator struct {
	encoder     Encoder
	index       vector.VectorIndex
	store       storage.Storage
	generator   generate.Generator
	keyword     KeywordIndexer
	submitTopK  int
	summaryTopK int
	logger      *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithKeywordIndex enables best-effort keyword indexing of submitted feedback.
func WithKeywordIndex(k KeywordIndexer) Option {
	return func(o *Orchestrator) { o.keyword = k }
}

// WithTopK overrides the neighbor counts for submissions and summaries.
func WithTopK(submit, summary int) Option {
	return func(o *Orchestrator) {
		if submit > 0 {
			o.submitTopK = submit
		}
		if summary > 0 {
			o.summaryTopK = summary
		}
	}
}

// NewOrchestrator creates an orchestrator over the given components.
func NewOrchestrator(
	encoder Encoder,
	index vector.VectorIndex,
	store storage.Storage,
	generator generate.Generator,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		encoder:     encoder,
		index:       index,
		store:       store,
		generator:   generator,
		submitTopK:  DefaultSubmitTopK,
		summaryTopK: DefaultSummaryTopK,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit answers a piece of feedback using similar past feedback, stores it, and appends its
// embedding to the index. The index is only touched after the record is stored, so every
// indexed id resolves in the store. Once the record is stored the result is always returned;
// an index failure after that comes back alongside it.
func (o *Orchestrator) Submit(ctx context.Context, in models.FeedbackInput) (*models.SubmitResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	vec, err := o.encoder.Embed(ctx, utils.NormalizeText(in.UserFeedback))
	if err != nil {
		return nil, fmt.Errorf("failed to embed feedback: %w", err)
	}
	hits, err := o.index.Search(ctx, vec, o.submitTopK)
	if err != nil {
		return nil, fmt.Errorf("failed to search similar feedback: %w", err)
	}
	similar, err := o.store.FindByIDs(ctx, vector.IDs(hits))
	if err != nil {
		return nil, fmt.Errorf("failed to load similar feedback: %w", err)
	}
	response, err := o.generator.GenerateResponse(ctx, in.UserFeedback, feedbackTexts(similar))
	if err != nil {
		return nil, err
	}

	source := in.Source
	if source == "" {
		source = "api"
	}
	rec := &models.Record{
		DistrictName: in.DistrictName,
		ServiceType:  in.ServiceType,
		UserFeedback: in.UserFeedback,
		ResponseText: response,
		Source:       source,
		Embedding:    vec,
	}
	id, err := o.store.Insert(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("failed to store feedback: %w", err)
	}
	var indexErr error
	if err := o.index.Add(ctx, id, vec); err != nil {
		o.logger.Error("feedback stored but not indexed",
			zap.String("id", id),
			zap.Error(err))
		indexErr = fmt.Errorf("failed to index feedback %s: %w", id, err)
	}
	if o.keyword != nil {
		if err := o.keyword.Index(ctx, rec); err != nil {
			o.logger.Warn("keyword index update failed", zap.String("id", id), zap.Error(err))
		}
	}
	o.logger.Debug("feedback submitted",
		zap.String("id", id),
		zap.String("district", in.DistrictName),
		zap.String("service", in.ServiceType),
		zap.Int("similar", len(similar)))

	return &models.SubmitResult{
		ID:         id,
		Response:   response,
		SimilarIDs: recordIDs(similar),
	}, indexErr
}

// Summarize generates a summary of all feedback for one district and service type, with the
// nearest neighbors of each item as context.
func (o *Orchestrator) Summarize(ctx context.Context, district, service string) (*models.SummaryResult, error) {
	group, err := o.store.FindByKey(ctx, district, service)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback: %w", err)
	}
	if len(group) == 0 {
		return nil, fmt.Errorf("%w for %s/%s", ErrNotFound, district, service)
	}

	var ids []string
	for _, rec := range group {
		emb := rec.Embedding
		if len(emb) != o.index.Dimensions() {
			// Records stored without a usable embedding are embedded again.
			emb, err = o.encoder.Embed(ctx, utils.NormalizeText(rec.UserFeedback))
			if err != nil {
				return nil, fmt.Errorf("failed to embed feedback %s: %w", rec.ID, err)
			}
		}
		hits, err := o.index.Search(ctx, emb, o.summaryTopK)
		if err != nil {
			return nil, fmt.Errorf("failed to search similar feedback: %w", err)
		}
		ids = append(ids, vector.IDs(hits)...)
	}
	similar, err := o.store.FindByIDs(ctx, Dedupe(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load similar feedback: %w", err)
	}

	summary, err := o.generator.GenerateSummary(ctx, feedbackTexts(group), feedbackTexts(similar))
	if err != nil {
		return nil, err
	}
	return &models.SummaryResult{
		DistrictName:  district,
		ServiceType:   service,
		Summary:       summary,
		FeedbackCount: len(group),
		SimilarIDs:    recordIDs(similar),
	}, nil
}

// Dedupe removes repeated ids, keeping the first occurrence of each.
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func feedbackTexts(recs []*models.Record) []string {
	texts := make([]string, len(recs))
	for i, r := range recs {
		texts[i] = r.UserFeedback
	}
	return texts
}

func recordIDs(recs []*models.Record) []string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}
