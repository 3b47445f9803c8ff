package batch

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"trademark-opposition/backend/internal/apperr"
	"trademark-opposition/backend/internal/trademark"
	"trademark-opposition/backend/internal/util"
)

// Defaults for chunked processing.
const (
	DefaultChunkSize  = 3
	DefaultChunkDelay = time.Second
)

// Mode selects the partial-failure policy.
type Mode int

const (
	// Tolerant logs and drops failing pairs.
	Tolerant Mode = iota
	// Strict aborts on the first failing pair.
	Strict
)

func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "tolerant"
}

// PairAssessor judges one goods pair. *assessment.GoodsAssessor satisfies it.
type PairAssessor interface {
	Assess(ctx context.Context, applicant, opponent trademark.GoodService, marks trademark.MarkSimilarity, model string) (trademark.GoodsServicesLikelihood, error)
}

// Config tunes the orchestrator.
type Config struct {
	ChunkSize  int
	ChunkDelay time.Duration
	Mode       Mode
}

// Pair is one cell of the applicant x opponent cross-product.
type Pair struct {
	Index     int                   `json:"index"`
	Applicant trademark.GoodService `json:"applicant_good"`
	Opponent  trademark.GoodService `json:"opponent_good"`
}

// PairResult is a successfully assessed pair.
type PairResult struct {
	Pair
	Likelihood trademark.GoodsServicesLikelihood `json:"likelihood"`
}

// Orchestrator assesses the full cross-product of goods in rate-limited chunks.
type Orchestrator struct {
	assessor PairAssessor
	cfg      Config
	observer Observer
	sleep    func(ctx context.Context, d time.Duration) error
}

// New returns an orchestrator with defaults applied to cfg.
func New(assessor PairAssessor, cfg Config) *Orchestrator {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkDelay < 0 {
		cfg.ChunkDelay = 0
	}
	return &Orchestrator{assessor: assessor, cfg: cfg, sleep: sleepContext}
}

// WithObserver returns a copy that reports progress to obs.
func (o *Orchestrator) WithObserver(obs Observer) *Orchestrator {
	clone := *o
	clone.observer = obs
	return &clone
}

// Mode reports the configured failure policy.
func (o *Orchestrator) Mode() Mode {
	return o.cfg.Mode
}

// Process returns one likelihood per successfully assessed pair. Order follows
// completion, not input order.
func (o *Orchestrator) Process(ctx context.Context, applicant, opponent []trademark.GoodService, marks trademark.MarkSimilarity, model string) ([]trademark.GoodsServicesLikelihood, error) {
	results, err := o.ProcessPairs(ctx, applicant, opponent, marks, model)
	if err != nil {
		return nil, err
	}
	out := make([]trademark.GoodsServicesLikelihood, 0, len(results))
	for _, r := range results {
		out = append(out, r.Likelihood)
	}
	return out, nil
}

// ProcessPairs is Process with each result tagged by its pair.
func (o *Orchestrator) ProcessPairs(ctx context.Context, applicant, opponent []trademark.GoodService, marks trademark.MarkSimilarity, model string) ([]PairResult, error) {
	for _, good := range applicant {
		if err := good.Validate(); err != nil {
			return nil, err
		}
	}
	for _, good := range opponent {
		if err := good.Validate(); err != nil {
			return nil, err
		}
	}
	if err := marks.Validate(); err != nil {
		return nil, err
	}

	pairs := CrossProduct(applicant, opponent)
	run := &progress{id: util.ShortID(), total: len(pairs), observer: o.observer}
	entry := logrus.WithFields(logrus.Fields{
		"request_id": util.RequestID(ctx),
		"batch_id":   run.id,
		"pairs":      len(pairs),
		"mode":       o.cfg.Mode.String(),
	})
	run.emit(Event{Type: EventStarted})
	if len(pairs) == 0 {
		run.emit(Event{Type: EventComplete})
		return []PairResult{}, nil
	}

	timer := util.StartTimer()
	results := make([]PairResult, 0, len(pairs))
	chunks := Chunk(pairs, o.cfg.ChunkSize)
	for i, chunk := range chunks {
		if i > 0 {
			if err := o.sleep(ctx, o.cfg.ChunkDelay); err != nil {
				err = apperr.Wrap(apperr.KindTransient, err, "batch cancelled between chunks")
				run.emit(Event{Type: EventFailed, Error: err.Error()})
				return nil, err
			}
		}
		var (
			chunkResults []PairResult
			err          error
		)
		if o.cfg.Mode == Strict {
			chunkResults, err = o.runStrict(ctx, chunk, marks, model, run)
		} else {
			chunkResults, err = o.runTolerant(ctx, chunk, marks, model, run, entry)
		}
		if err != nil {
			entry.WithError(err).Error("batch aborted")
			run.emit(Event{Type: EventFailed, Error: err.Error()})
			return nil, err
		}
		results = append(results, chunkResults...)
	}

	entry.WithFields(logrus.Fields{
		"assessed":    len(results),
		"failed":      len(pairs) - len(results),
		"duration_ms": timer.ElapsedMs(),
	}).Info("batch complete")
	run.emit(Event{Type: EventComplete})
	return results, nil
}

// runTolerant settles every pair of the chunk and keeps the successes.
func (o *Orchestrator) runTolerant(ctx context.Context, chunk []Pair, marks trademark.MarkSimilarity, model string, run *progress, entry *logrus.Entry) ([]PairResult, error) {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		out = make([]PairResult, 0, len(chunk))
	)
	for _, pair := range chunk {
		wg.Add(1)
		go func(pair Pair) {
			defer wg.Done()
			likelihood, err := o.assessor.Assess(ctx, pair.Applicant, pair.Opponent, marks, model)
			if err != nil {
				entry.WithError(err).WithFields(logrus.Fields{
					"pair":      pair.Index,
					"applicant": pair.Applicant.String(),
					"opponent":  pair.Opponent.String(),
				}).Warn("pair assessment failed; skipping")
				run.fail(pair, err)
				return
			}
			result := PairResult{Pair: pair, Likelihood: likelihood}
			mu.Lock()
			out = append(out, result)
			mu.Unlock()
			run.succeed(result)
		}(pair)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, err, "batch cancelled")
	}
	return out, nil
}

// runStrict cancels the rest of the chunk on the first failure and returns it.
func (o *Orchestrator) runStrict(ctx context.Context, chunk []Pair, marks trademark.MarkSimilarity, model string, run *progress) ([]PairResult, error) {
	g, gctx := errgroup.WithContext(ctx)
	results := make([]*PairResult, len(chunk))
	for i, pair := range chunk {
		i, pair := i, pair
		g.Go(func() error {
			likelihood, err := o.assessor.Assess(gctx, pair.Applicant, pair.Opponent, marks, model)
			if err != nil {
				run.fail(pair, err)
				return err
			}
			results[i] = &PairResult{Pair: pair, Likelihood: likelihood}
			run.succeed(*results[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]PairResult, 0, len(chunk))
	for _, r := range results {
		out = append(out, *r)
	}
	return out, nil
}

// CrossProduct pairs every applicant good with every opponent good.
func CrossProduct(applicant, opponent []trademark.GoodService) []Pair {
	pairs := make([]Pair, 0, len(applicant)*len(opponent))
	for _, a := range applicant {
		for _, b := range opponent {
			pairs = append(pairs, Pair{Index: len(pairs), Applicant: a, Opponent: b})
		}
	}
	return pairs
}

// Chunk splits pairs into consecutive groups of at most size.
func Chunk(pairs []Pair, size int) [][]Pair {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks [][]Pair
	for start := 0; start < len(pairs); start += size {
		end := start + size
		if end > len(pairs) {
			end = len(pairs)
		}
		chunks = append(chunks, pairs[start:end])
	}
	return chunks
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
