package api

import (
	"trademark-opposition/backend/internal/apperr"
	"trademark-opposition/backend/internal/batch"
	"trademark-opposition/backend/internal/prediction"
	"trademark-opposition/backend/internal/scoring"
	"trademark-opposition/backend/internal/trademark"
)

// WordmarkPairRequest compares two bare wordmarks. Empty strings are valid input.
type WordmarkPairRequest struct {
	MarkOne string `json:"mark_one"`
	MarkTwo string `json:"mark_two"`
}

// ScoreResponse carries a single similarity score.
type ScoreResponse struct {
	Score float64 `json:"score"`
}

// OverallSimilarityRequest drives the deterministic weighted path.
type OverallSimilarityRequest struct {
	MarkOne string `json:"mark_one" binding:"required"`
	MarkTwo string `json:"mark_two" binding:"required"`
	Model   string `json:"model"`
}

// OverallSimilarityResponse is the combined verdict with the axis scores behind it.
type OverallSimilarityResponse struct {
	trademark.MarkSimilarity
	Scores   scoring.Scores `json:"scores"`
	Weighted float64        `json:"weighted"`
}

// MarkDTO is a mark as submitted by API callers.
type MarkDTO struct {
	Wordmark           string `json:"wordmark" binding:"required"`
	IsRegistered       bool   `json:"is_registered"`
	RegistrationNumber string `json:"registration_number"`
}

func (m MarkDTO) mark() trademark.Mark {
	return trademark.Mark{Wordmark: m.Wordmark, IsRegistered: m.IsRegistered, RegistrationNumber: m.RegistrationNumber}
}

// GoodServiceDTO is one goods/services term.
type GoodServiceDTO struct {
	Term      string `json:"term" binding:"required"`
	NiceClass int    `json:"nice_class" binding:"required,min=1,max=45"`
}

func (g GoodServiceDTO) good() trademark.GoodService {
	return trademark.GoodService{Term: g.Term, NiceClass: g.NiceClass}
}

func goods(in []GoodServiceDTO) []trademark.GoodService {
	out := make([]trademark.GoodService, len(in))
	for i, g := range in {
		out[i] = g.good()
	}
	return out
}

// MarkSimilarityDTO is a previously obtained mark verdict. Levels are parsed case-insensitively.
type MarkSimilarityDTO struct {
	Visual     string `json:"visual" binding:"required"`
	Aural      string `json:"aural" binding:"required"`
	Conceptual string `json:"conceptual" binding:"required"`
	Overall    string `json:"overall" binding:"required"`
	Reasoning  string `json:"reasoning"`
}

func (m MarkSimilarityDTO) verdict() (trademark.MarkSimilarity, error) {
	var (
		out trademark.MarkSimilarity
		err error
	)
	axes := []struct {
		raw    string
		target *trademark.SimilarityLevel
	}{
		{m.Visual, &out.Visual},
		{m.Aural, &out.Aural},
		{m.Conceptual, &out.Conceptual},
		{m.Overall, &out.Overall},
	}
	for _, axis := range axes {
		if *axis.target, err = trademark.ParseSimilarityLevel(axis.raw); err != nil {
			return trademark.MarkSimilarity{}, err
		}
	}
	out.Reasoning = m.Reasoning
	return out, nil
}

// MarkSimilarityRequest asks for a mark verdict given precomputed visual and aural scores.
type MarkSimilarityRequest struct {
	Applicant   *MarkDTO `json:"applicant" binding:"required"`
	Opponent    *MarkDTO `json:"opponent" binding:"required"`
	VisualScore *float64 `json:"visual_score" binding:"required"`
	AuralScore  *float64 `json:"aural_score" binding:"required"`
	Model       string   `json:"model"`
}

// GoodsSimilarityRequest assesses one goods/services pair.
type GoodsSimilarityRequest struct {
	ApplicantGood  *GoodServiceDTO    `json:"applicant_good" binding:"required"`
	OpponentGood   *GoodServiceDTO    `json:"opponent_good" binding:"required"`
	MarkSimilarity *MarkSimilarityDTO `json:"mark_similarity" binding:"required"`
	Model          string             `json:"model"`
}

// BatchGoodsSimilarityRequest assesses the cross-product of two goods lists.
type BatchGoodsSimilarityRequest struct {
	ApplicantGoods []GoodServiceDTO   `json:"applicant_goods" binding:"required,min=1,dive"`
	OpponentGoods  []GoodServiceDTO   `json:"opponent_goods" binding:"required,min=1,dive"`
	MarkSimilarity *MarkSimilarityDTO `json:"mark_similarity" binding:"required"`
	Model          string             `json:"model"`
}

// CasePredictionRequest aggregates existing assessments into an outcome.
type CasePredictionRequest struct {
	MarkSimilarity           *MarkSimilarityDTO                  `json:"mark_similarity" binding:"required"`
	GoodsServicesLikelihoods []trademark.GoodsServicesLikelihood `json:"goods_services_likelihoods" binding:"required,min=1"`
	Model                    string                              `json:"model"`
}

// CasePredictionResponse is the outcome plus the statistics shown to the reasoning service.
type CasePredictionResponse struct {
	trademark.OppositionOutcome
	Stats prediction.Stats `json:"stats"`
}

// PredictRequest runs the full pipeline from raw marks and goods.
type PredictRequest struct {
	Applicant      *MarkDTO         `json:"applicant" binding:"required"`
	Opponent       *MarkDTO         `json:"opponent" binding:"required"`
	ApplicantGoods []GoodServiceDTO `json:"applicant_goods" binding:"required,min=1,dive"`
	OpponentGoods  []GoodServiceDTO `json:"opponent_goods" binding:"required,min=1,dive"`
	Model          string           `json:"model"`
}

func (r PredictRequest) caseRequest() prediction.CaseRequest {
	return prediction.CaseRequest{
		Applicant:      r.Applicant.mark(),
		Opponent:       r.Opponent.mark(),
		ApplicantGoods: goods(r.ApplicantGoods),
		OpponentGoods:  goods(r.OpponentGoods),
		Model:          r.Model,
	}
}

// SavePromptRequest stores a new revision of a named prompt.
type SavePromptRequest struct {
	Body   string `json:"body" binding:"required"`
	Author string `json:"author"`
}

// PromptDTO reports a stored or active prompt revision.
type PromptDTO struct {
	Name         string   `json:"name"`
	Version      int      `json:"version"`
	Placeholders []string `json:"placeholders,omitempty"`
	Author       string   `json:"author,omitempty"`
}

// BatchResponse is returned by the batch endpoint: the likelihoods plus the pair each came from.
type BatchResponse struct {
	Likelihoods []trademark.GoodsServicesLikelihood `json:"likelihoods"`
	Pairs       []batch.PairResult                  `json:"pairs"`
	Requested   int                                 `json:"requested"`
	Failed      int                                 `json:"failed"`
}

func (s *Server) checkListSizes(lists ...int) error {
	for _, n := range lists {
		if n > s.maxItems {
			return apperr.Validationf("at most %d goods/services per list are accepted, got %d", s.maxItems, n)
		}
	}
	return nil
}
