package prediction

import (
	"context"

	"github.com/sirupsen/logrus"

	"trademark-opposition/backend/internal/apperr"
	"trademark-opposition/backend/internal/assessment"
	"trademark-opposition/backend/internal/batch"
	"trademark-opposition/backend/internal/scoring"
	"trademark-opposition/backend/internal/trademark"
	"trademark-opposition/backend/internal/util"
)

// CaseRequest is the input of a full opposition prediction.
type CaseRequest struct {
	Applicant      trademark.Mark          `json:"applicant"`
	Opponent       trademark.Mark          `json:"opponent"`
	ApplicantGoods []trademark.GoodService `json:"applicant_goods"`
	OpponentGoods  []trademark.GoodService `json:"opponent_goods"`
	Model          string                  `json:"model,omitempty"`
}

// MarkScores are the locally computed scores handed to the mark assessor.
type MarkScores struct {
	Visual float64 `json:"visual"`
	Aural  float64 `json:"aural"`
}

// CaseResult is the full prediction plus the numbers it was derived from.
type CaseResult struct {
	trademark.CasePrediction
	Scores MarkScores `json:"scores"`
	Stats  Stats      `json:"stats"`
}

// Pipeline runs scorers, assessors, the batch orchestrator and the predictor in order.
type Pipeline struct {
	marks     *assessment.MarkAssessor
	batch     *batch.Orchestrator
	predictor *Predictor
}

func NewPipeline(marks *assessment.MarkAssessor, orchestrator *batch.Orchestrator, predictor *Predictor) *Pipeline {
	return &Pipeline{marks: marks, batch: orchestrator, predictor: predictor}
}

// Run predicts the opposition outcome. obs may be nil.
func (p *Pipeline) Run(ctx context.Context, req CaseRequest, obs batch.Observer) (CaseResult, error) {
	if len(req.ApplicantGoods) == 0 || len(req.OpponentGoods) == 0 {
		return CaseResult{}, apperr.Validationf("applicant_goods and opponent_goods must both be non-empty")
	}
	timer := util.StartTimer()
	scores := MarkScores{
		Visual: scoring.Visual(req.Applicant.Wordmark, req.Opponent.Wordmark),
		Aural:  scoring.Aural(req.Applicant.Wordmark, req.Opponent.Wordmark),
	}

	verdict, err := p.marks.Assess(ctx, req.Applicant, req.Opponent, scores.Visual, scores.Aural, req.Model)
	if err != nil {
		return CaseResult{}, err
	}

	orchestrator := p.batch
	if obs != nil {
		orchestrator = orchestrator.WithObserver(obs)
	}
	likelihoods, err := orchestrator.Process(ctx, req.ApplicantGoods, req.OpponentGoods, verdict, req.Model)
	if err != nil {
		return CaseResult{}, err
	}
	if len(likelihoods) == 0 {
		return CaseResult{}, apperr.New(apperr.KindService, "no goods/services pair could be assessed")
	}

	outcome, summary, err := p.predictor.Predict(ctx, verdict, likelihoods, req.Model)
	if err != nil {
		return CaseResult{}, err
	}

	logrus.WithFields(logrus.Fields{
		"request_id":  util.RequestID(ctx),
		"applicant":   req.Applicant.Wordmark,
		"opponent":    req.Opponent.Wordmark,
		"pairs":       summary.TotalPairs,
		"result":      outcome.Result,
		"duration_ms": timer.ElapsedMs(),
	}).Info("opposition prediction complete")

	return CaseResult{
		CasePrediction: trademark.CasePrediction{
			MarkComparison:           verdict,
			GoodsServicesLikelihoods: likelihoods,
			OppositionOutcome:        outcome,
		},
		Scores: scores,
		Stats:  summary,
	}, nil
}
