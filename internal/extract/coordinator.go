package extract

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/readlist/readlist-cli/internal/model"
	"github.com/readlist/readlist-cli/internal/store"
)

// state is the closed set of coordinator states for one episode run.
type state int

const (
	stateLocating state = iota
	stateManualParsing
	stateEvaluating
	stateModelParsing
	stateDone
)

// modelConfidence is recorded for results produced by the fallback parser.
const modelConfidence = 0.9

// Coordinator drives one episode through locate, manual parse, evaluate, and
// (when the evaluation rejects) the model fallback, then records the terminal
// outcome in the ledger. It is safe for concurrent use; concurrent calls for
// the same episode id share a single run.
type Coordinator struct {
	locator  *Locator
	splitter *Splitter
	policy   Policy
	fallback *ModelParser
	ledger   store.Store

	group singleflight.Group
}

// NewCoordinator wires the pipeline stages together.
func NewCoordinator(locator *Locator, splitter *Splitter, policy Policy, fallback *ModelParser, ledger store.Store) *Coordinator {
	return &Coordinator{
		locator:  locator,
		splitter: splitter,
		policy:   policy,
		fallback: fallback,
		ledger:   ledger,
	}
}

// Outcome is what one Process call produced.
type Outcome struct {
	Result  model.ExtractionResult
	Record  model.ProcessingRecord
	Skipped bool
}

// Process runs the pipeline for one episode. When force is false and the
// ledger already holds a success record for the episode, the run is skipped.
// The returned error covers ledger failures only; an extraction failure is a
// recorded outcome, not an error.
func (c *Coordinator) Process(ctx context.Context, ep model.Episode, force bool) (*Outcome, error) {
	v, err, _ := c.group.Do(ep.ID, func() (any, error) {
		return c.run(ctx, ep, force)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Outcome), nil
}

func (c *Coordinator) run(ctx context.Context, ep model.Episode, force bool) (*Outcome, error) {
	log := zap.L().With(zap.String("episode_id", ep.ID))

	if !force {
		prev, err := c.ledger.GetRecord(ctx, ep.ID)
		if err != nil {
			return nil, eris.Wrap(err, "extract: check ledger")
		}
		if prev != nil && prev.Status == model.StatusSuccess {
			log.Debug("episode already processed, skipping")
			return &Outcome{Record: *prev, Skipped: true}, nil
		}
	}

	text := Normalize(ep.Description)

	res := model.ExtractionResult{EpisodeID: ep.ID, Parser: model.ParserNone}
	var (
		spanText string
		decision Decision
		parseErr error
	)

	for st := stateLocating; st != stateDone; {
		switch st {
		case stateLocating:
			span, ok := c.locator.Locate(text)
			if !ok {
				log.Info("no recommendation section found")
				st = stateDone
				continue
			}
			spanText = text[span.Start:span.End]
			log.Debug("section located",
				zap.String("header", string(span.Header)),
				zap.Int("span_len", len(spanText)),
			)
			st = stateManualParsing

		case stateManualParsing:
			res.Candidates = c.splitter.Split(spanText)
			st = stateEvaluating

		case stateEvaluating:
			decision = c.policy.Evaluate(res.Candidates)
			if decision.Accept {
				res.Parser = model.ParserManual
				res.Confidence = decision.Confidence
				st = stateDone
				continue
			}
			log.Info("manual parse rejected, escalating",
				zap.Float64("confidence", decision.Confidence),
				zap.Strings("reasons", decision.Reasons),
				zap.Int("candidates", len(res.Candidates)),
			)
			st = stateModelParsing

		case stateModelParsing:
			res.Parser = model.ParserModel
			res.Candidates, parseErr = c.fallback.Parse(ctx, spanText)
			if parseErr == nil && len(res.Candidates) > 0 {
				res.Confidence = modelConfidence
			}
			st = stateDone
		}
	}

	if parseErr != nil {
		res.Candidates = nil
		res.Confidence = 0
	}
	res.BookCount = len(res.Candidates)

	rec := model.ProcessingRecord{
		EpisodeID:    ep.ID,
		EpisodeTitle: ep.Name,
		Parser:       res.Parser,
		BookCount:    res.BookCount,
		Confidence:   res.Confidence,
		ProcessedAt:  time.Now().UTC(),
	}
	switch {
	case parseErr != nil:
		rec.Status = model.StatusFailed
		rec.ErrorDetail = parseErr.Error()
	case res.BookCount > 0:
		rec.Status = model.StatusSuccess
	default:
		rec.Status = model.StatusNoBooksFound
	}

	// Ledger writes survive batch cancellation so every attempt leaves a
	// record.
	wctx := context.WithoutCancel(ctx)
	if err := c.ledger.UpsertRecord(wctx, rec); err != nil {
		return nil, eris.Wrap(err, "extract: record outcome")
	}
	if rec.Status == model.StatusSuccess {
		if err := c.ledger.ReplaceBooks(wctx, ep.ID, booksFrom(ep, res.Candidates)); err != nil {
			return nil, eris.Wrap(err, "extract: store books")
		}
	}

	log.Info("episode processed",
		zap.String("status", string(rec.Status)),
		zap.String("parser", string(rec.Parser)),
		zap.Int("book_count", rec.BookCount),
		zap.Float64("confidence", rec.Confidence),
	)

	return &Outcome{Result: res, Record: rec}, nil
}

// recordFailure writes a failed record for an episode that never reached the
// pipeline, typically because the source fetch failed.
func (c *Coordinator) recordFailure(ctx context.Context, episodeID string, cause error) error {
	rec := model.ProcessingRecord{
		EpisodeID:   episodeID,
		Status:      model.StatusFailed,
		Parser:      model.ParserNone,
		ErrorDetail: cause.Error(),
		ProcessedAt: time.Now().UTC(),
	}
	return eris.Wrap(c.ledger.UpsertRecord(context.WithoutCancel(ctx), rec), "extract: record failure")
}

func booksFrom(ep model.Episode, cands []model.Candidate) []model.Book {
	books := make([]model.Book, 0, len(cands))
	for _, c := range cands {
		books = append(books, model.Book{
			ID:           uuid.NewString(),
			EpisodeID:    ep.ID,
			EpisodeTitle: ep.Name,
			Title:        c.Title,
			Author:       c.Author,
			SourceURL:    ep.URL,
		})
	}
	return books
}
