package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mygovpulse/internal/analyze"
	"mygovpulse/internal/config"
	"mygovpulse/internal/domain"
	"mygovpulse/internal/ports"
	"mygovpulse/internal/textnorm"
)

// Deps wires all driven adapters into the refresh orchestrator.
type Deps struct {
	Config       config.Config
	Source       ports.CommentSource
	Analyzer     ports.CommentAnalyzer
	Store        ports.CorpusStore
	ModelEnabled bool
	Logger       *slog.Logger
	Now          func() time.Time
}

// sourceState is the per-source runtime state. All fields are guarded
// by the orchestrator mutex; the lock is never held across network or
// disk work.
type sourceState struct {
	comments    []domain.Comment
	lastUpdated *time.Time
	inProgress  bool
	lastError   string
}

// Snapshot is the serving view of one source's state.
type Snapshot struct {
	SourceID     string           `json:"source_id"`
	SourceName   string           `json:"source_name"`
	Comments     []domain.Comment `json:"comments"`
	LastUpdated  *time.Time       `json:"last_updated"`
	InProgress   bool             `json:"in_progress"`
	LastError    *string          `json:"last_error"`
	ModelEnabled bool             `json:"gemini_enabled"`
}

// Orchestrator owns per-source refresh state: staleness decisions,
// single-flight suppression, and the background pipeline runs.
type Orchestrator struct {
	cfg          config.Config
	source       ports.CommentSource
	analyzer     ports.CommentAnalyzer
	store        ports.CorpusStore
	modelEnabled bool
	logger       *slog.Logger
	now          func() time.Time

	mu     sync.Mutex
	states map[string]*sourceState
}

// New constructs the orchestrator with one state slot per configured
// source.
func New(deps Deps) *Orchestrator {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	states := make(map[string]*sourceState, len(deps.Config.Sources))
	for _, src := range deps.Config.Sources {
		states[src.ID] = &sourceState{comments: []domain.Comment{}}
	}

	return &Orchestrator{
		cfg:          deps.Config,
		source:       deps.Source,
		analyzer:     deps.Analyzer,
		store:        deps.Store,
		modelEnabled: deps.ModelEnabled,
		logger:       deps.Logger,
		now:          now,
		states:       states,
	}
}

// Seed initializes runtime state from persisted corpora before
// serving: the processed corpus first, the raw mirror as fallback.
// Rows pass through the full normalize+analyze path so old files
// self-heal against the current filter and analysis rules.
func (o *Orchestrator) Seed(ctx context.Context) {
	for _, src := range o.cfg.Sources {
		rows := o.reanalyze(ctx, o.store.Load(src.CSV))
		if len(rows) == 0 {
			rows = o.reanalyze(ctx, o.store.Load(src.RawCSV))
		}

		o.mu.Lock()
		state := o.states[src.ID]
		state.comments = rows
		if len(rows) > 0 {
			seededAt := o.now()
			state.lastUpdated = &seededAt
		}
		o.mu.Unlock()

		o.info("seeded source", "source", src.ID, "comments", len(rows))
	}
}

// Trigger starts a background refresh for the source when allowed and
// reports whether one was started. Forced triggers skip the staleness
// check; a refresh already in flight always rejects the trigger. The
// check-and-set runs under the state lock so two concurrent triggers
// can never both start.
func (o *Orchestrator) Trigger(sourceID string, force bool) bool {
	src, ok := o.cfg.SourceByID(sourceID)
	if !ok {
		return false
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	state := o.states[sourceID]
	if state.inProgress {
		return false
	}
	if !force && !o.stale(state.lastUpdated) {
		return false
	}

	state.inProgress = true
	state.lastError = ""
	go o.refresh(src)
	return true
}

// Snapshot returns the current serving state for the source.
func (o *Orchestrator) Snapshot(sourceID string) (Snapshot, bool) {
	src, ok := o.cfg.SourceByID(sourceID)
	if !ok {
		return Snapshot{}, false
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	state := o.states[sourceID]
	comments := make([]domain.Comment, len(state.comments))
	copy(comments, state.comments)

	var lastError *string
	if state.lastError != "" {
		message := state.lastError
		lastError = &message
	}

	return Snapshot{
		SourceID:     sourceID,
		SourceName:   src.Name,
		Comments:     comments,
		LastUpdated:  state.lastUpdated,
		InProgress:   state.inProgress,
		LastError:    lastError,
		ModelEnabled: o.modelEnabled,
	}, true
}

// refresh runs one end-to-end pipeline execution for the source. It
// always releases the in-progress flag, and on failure keeps the
// previous comment list so a stale corpus beats no data.
func (o *Orchestrator) refresh(src config.Source) {
	ctx := context.Background()

	defer func() {
		o.mu.Lock()
		o.states[src.ID].inProgress = false
		o.mu.Unlock()
	}()

	merged, err := o.scrapeAndMerge(ctx, src)

	o.mu.Lock()
	state := o.states[src.ID]
	if err != nil {
		state.lastError = err.Error()
	} else {
		state.comments = merged
		finishedAt := o.now()
		state.lastUpdated = &finishedAt
		state.lastError = ""
	}
	o.mu.Unlock()

	if err != nil {
		o.info("refresh failed", "source", src.ID, "error", err)
		return
	}
	o.info("refresh complete", "source", src.ID, "comments", len(merged))
}

func (o *Orchestrator) scrapeAndMerge(ctx context.Context, src config.Source) ([]domain.Comment, error) {
	raw, err := o.source.Scrape(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("no comments extracted from source")
	}

	analyzed := o.analyzeRaw(ctx, raw)
	if len(analyzed) == 0 {
		return nil, errors.New("no valid comments after analysis")
	}

	existing := o.reanalyze(ctx, o.store.Load(src.CSV))
	merged := domain.Merge(analyzed, existing)

	if err := o.store.Save(src.CSV, merged); err != nil {
		return nil, fmt.Errorf("persist corpus: %w", err)
	}
	if err := o.store.Save(src.RawCSV, merged); err != nil {
		return nil, fmt.Errorf("persist raw corpus: %w", err)
	}

	return merged, nil
}

// analyzeRaw is the normalize+classify stage: junk rows drop silently,
// placeholder authors become "Unknown", every surviving row gets a
// full analysis.
func (o *Orchestrator) analyzeRaw(ctx context.Context, rows []domain.RawComment) []domain.Comment {
	out := make([]domain.Comment, 0, len(rows))
	for _, row := range rows {
		text := textnorm.RepairMojibake(row.Text)
		if textnorm.IsJunkOrBoilerplate(text) {
			continue
		}

		author := textnorm.RepairMojibake(row.Author)
		if textnorm.IsPlaceholderAuthor(author) {
			author = "Unknown"
		}

		analysis := o.analyzer.Analyze(ctx, text)
		summary := analysis.Summary
		if summary == "" {
			summary = text
		}

		out = append(out, domain.Comment{
			Author:         author,
			Timestamp:      textnorm.RepairMojibake(row.Timestamp),
			Text:           text,
			Lang:           analyze.NormalizeLanguageName(analysis.Lang),
			Sentiment:      analyze.NormalizeSentiment(analysis.Sentiment),
			SentimentScore: analysis.SentimentScore,
			Summary:        analyze.ShortSummary(summary),
		})
	}
	return out
}

// reanalyze pushes previously persisted rows back through the same
// pipeline as freshly scraped ones.
func (o *Orchestrator) reanalyze(ctx context.Context, rows []domain.Comment) []domain.Comment {
	raw := make([]domain.RawComment, 0, len(rows))
	for _, row := range rows {
		raw = append(raw, domain.RawComment{Author: row.Author, Timestamp: row.Timestamp, Text: row.Text})
	}
	return o.analyzeRaw(ctx, raw)
}

func (o *Orchestrator) stale(lastUpdated *time.Time) bool {
	if lastUpdated == nil {
		return true
	}
	return o.now().Sub(*lastUpdated) >= o.cfg.Refresh.Interval()
}

func (o *Orchestrator) info(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Info(msg, args...)
	}
}
