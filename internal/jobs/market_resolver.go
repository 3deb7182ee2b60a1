package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"binarybets/internal/ai"
	"binarybets/internal/cache"
	"binarybets/internal/evidence"
	"binarybets/internal/metrics"
	"binarybets/internal/models"
	"binarybets/internal/repository"
	"binarybets/internal/services"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Policy selects which markets a resolver pass looks at
type Policy string

const (
	// PolicyContinuous polls every open AI-enabled market, deadline or not
	PolicyContinuous Policy = "continuous"
	// PolicyDeadline only looks at open markets whose deadline has passed
	PolicyDeadline Policy = "deadline"
)

const outcomeSkipped = "skipped"

// Evaluator produces a verdict for one market
type Evaluator interface {
	Evaluate(ctx context.Context, req ai.Request) ai.Result
}

// Settler commits a resolution
type Settler interface {
	Settle(ctx context.Context, marketID uint, winningSelection, resolvedBy string) (*services.SettlementSummary, error)
}

// EvidenceGatherer supplies advisory context for the prompt
type EvidenceGatherer interface {
	Gather(ctx context.Context, market *models.Market) *evidence.Evidence
}

// ResolverOptions tunes one resolver
type ResolverOptions struct {
	Policy              Policy
	Interval            time.Duration
	ConfidenceThreshold int
	MaxMarketsPerRun    int
	LockTTL             time.Duration
	RunOnStart          bool
}

// RunSummary tallies one pass
type RunSummary struct {
	RunID      string        `json:"run_id"`
	Policy     Policy        `json:"policy"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Candidates int           `json:"candidates"`
	Resolved   int           `json:"resolved"`
	KeptOpen   int           `json:"kept_open"`
	Errored    int           `json:"errored"`
	Skipped    int           `json:"skipped"`
}

// MarketResolver periodically asks the AI client about open markets and settles
// the ones that pass the confidence gate
type MarketResolver struct {
	repo      *repository.Repository
	evaluator Evaluator
	settler   Settler
	evidence  EvidenceGatherer
	locker    cache.Locker
	metrics   *metrics.Metrics
	log       *zap.Logger
	opts      ResolverOptions
	now       func() time.Time
}

// NewMarketResolver creates a resolver. gatherer may be nil; a nil locker
// means no cross-process lock.
func NewMarketResolver(
	repo *repository.Repository,
	evaluator Evaluator,
	settler Settler,
	gatherer EvidenceGatherer,
	locker cache.Locker,
	m *metrics.Metrics,
	log *zap.Logger,
	opts ResolverOptions,
) *MarketResolver {
	// the gate can be raised, never lowered
	if opts.ConfidenceThreshold < ai.DefaultConfidenceThreshold {
		opts.ConfidenceThreshold = ai.DefaultConfidenceThreshold
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval(opts.Policy)
	}
	if opts.MaxMarketsPerRun <= 0 {
		opts.MaxMarketsPerRun = 200
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Minute
	}
	if locker == nil {
		locker = cache.NoopLocker{}
	}
	return &MarketResolver{
		repo:      repo,
		evaluator: evaluator,
		settler:   settler,
		evidence:  gatherer,
		locker:    locker,
		metrics:   m,
		log:       log.Named("resolver").With(zap.String("policy", string(opts.Policy))),
		opts:      opts,
		now:       time.Now,
	}
}

func defaultInterval(p Policy) time.Duration {
	if p == PolicyDeadline {
		return time.Hour
	}
	return 24 * time.Hour
}

// Policy reports which candidate policy this resolver runs
func (r *MarketResolver) Policy() Policy {
	return r.opts.Policy
}

// Start runs a pass every interval until ctx is cancelled
func (r *MarketResolver) Start(ctx context.Context) {
	r.log.Info("starting market resolver", zap.Duration("interval", r.opts.Interval))

	if r.opts.RunOnStart {
		r.runLogged(ctx)
	}

	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.runLogged(ctx)
		case <-ctx.Done():
			r.log.Info("stopping market resolver")
			return
		}
	}
}

func (r *MarketResolver) runLogged(ctx context.Context) {
	if _, err := r.RunOnce(ctx); err != nil {
		r.log.Error("resolver pass failed", zap.Error(err))
	}
}

// RunOnce evaluates every current candidate once. Per-market failures are
// counted, never returned; the error is only set when candidates could not be listed.
func (r *MarketResolver) RunOnce(ctx context.Context) (RunSummary, error) {
	started := r.now()
	summary := RunSummary{
		RunID:     uuid.NewString(),
		Policy:    r.opts.Policy,
		StartedAt: started,
	}
	log := r.log.With(zap.String("run_id", summary.RunID))

	var deadlineBefore *time.Time
	if r.opts.Policy == PolicyDeadline {
		cutoff := started.UTC()
		deadlineBefore = &cutoff
	}

	markets, err := r.repo.ListResolutionCandidates(ctx, deadlineBefore, r.opts.MaxMarketsPerRun)
	if err != nil {
		return summary, fmt.Errorf("list candidates: %w", err)
	}
	summary.Candidates = len(markets)
	if len(markets) == 0 {
		return summary, nil
	}

	log.Info("resolver pass started", zap.Int("candidates", len(markets)))

	for i, market := range markets {
		if ctx.Err() != nil {
			summary.Skipped += len(markets) - i
			log.Info("resolver pass interrupted", zap.Int("remaining", len(markets)-i))
			break
		}

		switch outcome := r.evaluateMarket(ctx, summary.RunID, market); outcome {
		case string(models.ResolverOutcomeResolved):
			summary.Resolved++
		case string(models.ResolverOutcomeKeptOpen):
			summary.KeptOpen++
		case string(models.ResolverOutcomeError):
			summary.Errored++
		default: // already resolved or locked elsewhere
			summary.Skipped++
		}
	}

	summary.Duration = r.now().Sub(started)
	r.metrics.ObserveRun(string(r.opts.Policy), summary.Duration.Seconds())
	log.Info("resolver pass finished",
		zap.Int("candidates", summary.Candidates),
		zap.Int("resolved", summary.Resolved),
		zap.Int("kept_open", summary.KeptOpen),
		zap.Int("errored", summary.Errored),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

// evaluateMarket runs lock, evidence, evaluation, gate, settlement and audit for
// one market. It never panics past its own boundary.
func (r *MarketResolver) evaluateMarket(ctx context.Context, runID string, market *models.Market) (outcome string) {
	log := r.log.With(zap.String("run_id", runID), zap.Uint("market_id", market.ID))

	release, err := r.locker.Acquire(ctx, fmt.Sprintf("market:%d", market.ID), r.opts.LockTTL)
	switch {
	case errors.Is(err, cache.ErrLockHeld):
		log.Debug("market locked by another resolver, skipping")
		r.metrics.ObserveEvaluation(string(r.opts.Policy), outcomeSkipped)
		return outcomeSkipped
	case err != nil:
		// settlement is idempotent, so a broken lock backend only costs duplicate evaluations
		log.Warn("resolver lock unavailable, continuing without it", zap.Error(err))
	default:
		defer func() {
			relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := release(relCtx); err != nil {
				log.Warn("failed to release resolver lock", zap.Error(err))
			}
		}()
	}

	entry := &models.ResolverLog{
		RunID:    runID,
		MarketID: market.ID,
		Policy:   string(r.opts.Policy),
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("market evaluation panicked", zap.Any("panic", rec))
			entry.Outcome = models.ResolverOutcomeError
			entry.Error = fmt.Sprintf("panic: %v", rec)
			outcome = string(models.ResolverOutcomeError)
		}
		r.writeLog(ctx, log, entry)
		r.metrics.ObserveEvaluation(string(r.opts.Policy), outcome)
	}()

	req := ai.Request{
		MarketID:    market.ID,
		Question:    market.Question,
		Description: market.Description,
		Category:    market.Category,
		Options:     market.OptionLabels(),
		Deadline:    market.Deadline,
	}
	if r.evidence != nil {
		req.Evidence = r.evidence.Gather(ctx, market).Summary()
	}

	res := r.evaluator.Evaluate(ctx, req)
	entry.Provider = res.Provider
	entry.RawResponse = res.Raw

	if res.Verdict == nil {
		entry.Decision = string(ai.DecisionKeepOpen)
		entry.Outcome = models.ResolverOutcomeError
		if res.Err != nil {
			entry.Error = res.Err.Error()
		}
		log.Warn("no verdict from any provider", zap.Int("attempts", len(res.Attempts)), zap.Error(res.Err))
		return string(entry.Outcome)
	}

	v := res.Verdict
	entry.Decision = string(v.Decision)
	entry.Winner = v.Winner
	entry.Confidence = v.Confidence
	entry.Reasoning = v.Reasoning

	if !ai.Actionable(v, req.Options, r.opts.ConfidenceThreshold) {
		entry.Outcome = models.ResolverOutcomeKeptOpen
		log.Info("market kept open",
			zap.String("provider", res.Provider),
			zap.String("decision", string(v.Decision)),
			zap.Int("confidence", v.Confidence))
		return string(entry.Outcome)
	}

	summary, err := r.settler.Settle(ctx, market.ID, *v.Winner, res.Provider)
	switch {
	case errors.Is(err, services.ErrAlreadyResolved):
		entry.Outcome = models.ResolverOutcomeAlreadyResolved
		log.Info("market already resolved, nothing to do")
	case err != nil:
		entry.Outcome = models.ResolverOutcomeError
		entry.Error = err.Error()
		log.Error("settlement failed", zap.String("provider", res.Provider), zap.Error(err))
	default:
		entry.Outcome = models.ResolverOutcomeResolved
		log.Info("market resolved",
			zap.String("provider", res.Provider),
			zap.String("winner", *v.Winner),
			zap.Int("confidence", v.Confidence),
			zap.Int("winners", summary.WinnersCount),
			zap.String("total_payout", summary.TotalPayout.StringFixed(2)))
	}
	return string(entry.Outcome)
}

// writeLog appends the audit row. Failures are logged and otherwise ignored.
func (r *MarketResolver) writeLog(ctx context.Context, log *zap.Logger, entry *models.ResolverLog) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.repo.CreateResolverLog(writeCtx, entry); err != nil {
		log.Warn("failed to write resolver log", zap.Error(err))
	}
}
