package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"trademark-opposition/backend/internal/prompts"
	"trademark-opposition/backend/internal/scoring"
	"trademark-opposition/backend/internal/trademark"
	"trademark-opposition/backend/internal/util"
)

func (s *Server) handleVisualSimilarity(c *gin.Context) {
	var req WordmarkPairRequest
	if !s.bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, ScoreResponse{Score: scoring.Visual(req.MarkOne, req.MarkTwo)})
}

func (s *Server) handleAuralSimilarity(c *gin.Context) {
	var req WordmarkPairRequest
	if !s.bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, ScoreResponse{Score: scoring.Aural(req.MarkOne, req.MarkTwo)})
}

func (s *Server) handleOverallSimilarity(c *gin.Context) {
	var req OverallSimilarityRequest
	if !s.bindJSON(c, &req) {
		return
	}
	verdict, scores, err := s.marks.Overall(c.Request.Context(), req.MarkOne, req.MarkTwo, req.Model)
	if err != nil {
		s.renderFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, OverallSimilarityResponse{
		MarkSimilarity: verdict,
		Scores:         scores,
		Weighted:       scores.Weighted(),
	})
}

func (s *Server) handleMarkSimilarity(c *gin.Context) {
	var req MarkSimilarityRequest
	if !s.bindJSON(c, &req) {
		return
	}
	verdict, err := s.marks.Assess(c.Request.Context(), req.Applicant.mark(), req.Opponent.mark(), *req.VisualScore, *req.AuralScore, req.Model)
	if err != nil {
		s.renderFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

func (s *Server) handleGoodsSimilarity(c *gin.Context) {
	var req GoodsSimilarityRequest
	if !s.bindJSON(c, &req) {
		return
	}
	verdict, err := req.MarkSimilarity.verdict()
	if err != nil {
		s.renderFailure(c, err)
		return
	}
	likelihood, err := s.goods.Assess(c.Request.Context(), req.ApplicantGood.good(), req.OpponentGood.good(), verdict, req.Model)
	if err != nil {
		s.renderFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, likelihood)
}

func (s *Server) handleBatchGoodsSimilarity(c *gin.Context) {
	var req BatchGoodsSimilarityRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if err := s.checkListSizes(len(req.ApplicantGoods), len(req.OpponentGoods)); err != nil {
		s.renderFailure(c, err)
		return
	}
	verdict, err := req.MarkSimilarity.verdict()
	if err != nil {
		s.renderFailure(c, err)
		return
	}
	results, err := s.batch.WithObserver(s.notifier.For(c.GetString(apiClientKey))).ProcessPairs(c.Request.Context(), goods(req.ApplicantGoods), goods(req.OpponentGoods), verdict, req.Model)
	if err != nil {
		s.renderFailure(c, err)
		return
	}
	resp := BatchResponse{
		Likelihoods: make([]trademark.GoodsServicesLikelihood, 0, len(results)),
		Pairs:       results,
		Requested:   len(req.ApplicantGoods) * len(req.OpponentGoods),
	}
	for _, r := range results {
		resp.Likelihoods = append(resp.Likelihoods, r.Likelihood)
	}
	resp.Failed = resp.Requested - len(results)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCasePrediction(c *gin.Context) {
	var req CasePredictionRequest
	if !s.bindJSON(c, &req) {
		return
	}
	verdict, err := req.MarkSimilarity.verdict()
	if err != nil {
		s.renderFailure(c, err)
		return
	}
	outcome, stats, err := s.predictor.Predict(c.Request.Context(), verdict, req.GoodsServicesLikelihoods, req.Model)
	if err != nil {
		s.renderFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, CasePredictionResponse{OppositionOutcome: outcome, Stats: stats})
}

func (s *Server) handlePredict(c *gin.Context) {
	var req PredictRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if err := s.checkListSizes(len(req.ApplicantGoods), len(req.OpponentGoods)); err != nil {
		s.renderFailure(c, err)
		return
	}
	result, err := s.pipeline.Run(c.Request.Context(), req.caseRequest(), s.notifier.For(c.GetString(apiClientKey)))
	if err != nil {
		s.renderFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListPrompts(c *gin.Context) {
	versions := s.prompts.Versions()
	out := make([]PromptDTO, 0, len(versions))
	for _, name := range []string{prompts.ConceptualSimilarity, prompts.MarkSimilarity, prompts.GoodsServices, prompts.CasePrediction} {
		tmpl, ok := s.prompts.Get(name)
		if !ok {
			continue
		}
		out = append(out, PromptDTO{Name: name, Version: tmpl.Version, Placeholders: tmpl.Placeholders()})
	}
	c.JSON(http.StatusOK, out)
}

// handleSavePrompt stores a new prompt revision and activates it. The body must only
// use placeholders the active revision declares.
func (s *Server) handleSavePrompt(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	var req SavePromptRequest
	if !s.bindJSON(c, &req) {
		return
	}
	candidate, err := prompts.Parse(name, 0, req.Body)
	if err != nil {
		s.renderError(c, http.StatusUnprocessableEntity, err)
		return
	}
	if _, ok := s.prompts.Get(name); !ok {
		s.renderError(c, http.StatusNotFound, errors.New("unknown prompt "+name))
		return
	}
	if err := s.prompts.Compatible(candidate); err != nil {
		s.renderError(c, http.StatusUnprocessableEntity, err)
		return
	}

	author := strings.TrimSpace(req.Author)
	if author == "" {
		author = c.GetString(apiClientKey)
	}
	row, err := s.db.SavePromptTemplate(name, req.Body, author)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	tmpl, err := prompts.Parse(row.Name, row.Version, row.Body)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	if _, err := s.prompts.Override(tmpl); err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	logrus.WithFields(logrus.Fields{
		"request_id": util.RequestID(c.Request.Context()),
		"prompt":     row.Name,
		"version":    row.Version,
		"author":     row.Author,
	}).Info("prompt revision activated")
	c.JSON(http.StatusCreated, PromptDTO{Name: row.Name, Version: row.Version, Placeholders: tmpl.Placeholders(), Author: row.Author})
}
