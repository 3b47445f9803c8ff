package prediction

import (
	"github.com/montanaflynn/stats"

	"trademark-opposition/backend/internal/apperr"
	"trademark-opposition/backend/internal/trademark"
)

// Stats summarises the goods/services likelihoods of one case.
type Stats struct {
	TotalPairs int `json:"total_pairs"`
	// ConfusedCount equals DirectCount + IndirectCount.
	ConfusedCount int `json:"confused_count"`
	// ConfusedPercentage is 100*confused/total rounded to one decimal place.
	ConfusedPercentage float64 `json:"confused_percentage"`
	DirectCount        int     `json:"direct_count"`
	IndirectCount      int     `json:"indirect_count"`
	AverageSimilarity  float64 `json:"average_similarity"`
}

// ComputeStats validates the likelihoods and derives the summary. The list must not be empty.
func ComputeStats(likelihoods []trademark.GoodsServicesLikelihood) (Stats, error) {
	if len(likelihoods) == 0 {
		return Stats{}, apperr.Validationf("at least one goods/services likelihood is required")
	}
	s := Stats{TotalPairs: len(likelihoods)}
	scores := make([]float64, 0, len(likelihoods))
	for i, raw := range likelihoods {
		l := raw.Normalized()
		if err := l.Validate(); err != nil {
			return Stats{}, apperr.Wrapf(apperr.KindValidation, err, "likelihood %d", i)
		}
		scores = append(scores, l.SimilarityScore)
		if !l.LikelihoodOfConfusion {
			continue
		}
		s.ConfusedCount++
		switch *l.ConfusionType {
		case trademark.ConfusionDirect:
			s.DirectCount++
		case trademark.ConfusionIndirect:
			s.IndirectCount++
		}
	}

	pct, err := stats.Round(100*float64(s.ConfusedCount)/float64(s.TotalPairs), 1)
	if err != nil {
		return Stats{}, err
	}
	s.ConfusedPercentage = pct

	mean, err := stats.Mean(scores)
	if err != nil {
		return Stats{}, err
	}
	s.AverageSimilarity = mean
	return s, nil
}
