package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"trademark-opposition/backend/internal/ai"
	"trademark-opposition/backend/internal/assessment"
	"trademark-opposition/backend/internal/batch"
	"trademark-opposition/backend/internal/prediction"
	"trademark-opposition/backend/internal/prompts"
	"trademark-opposition/backend/internal/scoring"
	"trademark-opposition/backend/internal/store"
	"trademark-opposition/backend/internal/util"
)

// Config defines server dependencies.
type Config struct {
	DBPath          string
	SilentDB        bool
	AllowedOrigins  []string
	RequireAuth     bool
	Strict          bool
	MaxItemsPerList int
	ChunkSize       int
	ChunkDelay      time.Duration
	LexiconPath     string
	AIConfig        ai.Config
	OpenAIConfig    ai.OpenAIConfig
	AnthropicAPIKey string
	// Generator replaces the provider generators when set.
	Generator ai.Generator
}

// Server wires HTTP handlers with the assessment pipeline and the store.
type Server struct {
	db             *store.Database
	prompts        *prompts.Registry
	reasoner       *ai.Client
	marks          *assessment.MarkAssessor
	goods          *assessment.GoodsAssessor
	batch          *batch.Orchestrator
	predictor      *prediction.Predictor
	pipeline       *prediction.Pipeline
	notifier       *BatchNotifier
	allowedOrigins []string
	requireAuth    bool
	maxItems       int
}

const defaultMaxItemsPerList = 5

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}
	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	registry, err := prompts.Defaults()
	if err != nil {
		return nil, err
	}
	rows, err := db.LatestPromptTemplates()
	if err != nil {
		return nil, fmt.Errorf("load stored prompts: %w", err)
	}
	if _, err := registry.ApplyStored(rows); err != nil {
		return nil, fmt.Errorf("apply stored prompts: %w", err)
	}

	coined, err := scoring.NewCoinedDetector(cfg.LexiconPath)
	if err != nil {
		return nil, fmt.Errorf("coined detector: %w", err)
	}

	gen := cfg.Generator
	if gen == nil {
		gen, err = buildGenerators(cfg)
		if err != nil {
			return nil, err
		}
	}
	reasoner, err := ai.NewClient(gen, cfg.AIConfig)
	if err != nil {
		return nil, fmt.Errorf("reasoning client: %w", err)
	}
	if !reasoner.Enabled() {
		logrus.Warn("no reasoning provider configured; only local scoring endpoints will succeed")
	}

	mode := batch.Tolerant
	if cfg.Strict {
		mode = batch.Strict
	}
	conceptual := assessment.NewConceptualResolver(reasoner, coined, registry, cfg.Strict)
	marks := assessment.NewMarkAssessor(reasoner, registry, conceptual)
	goods := assessment.NewGoodsAssessor(reasoner, registry)
	orchestrator := batch.New(goods, batch.Config{ChunkSize: cfg.ChunkSize, ChunkDelay: cfg.ChunkDelay, Mode: mode})
	predictor := prediction.NewPredictor(reasoner, registry)

	server := &Server{
		db:             db,
		prompts:        registry,
		reasoner:       reasoner,
		marks:          marks,
		goods:          goods,
		batch:          orchestrator,
		predictor:      predictor,
		pipeline:       prediction.NewPipeline(marks, orchestrator, predictor),
		notifier:       NewBatchNotifier(),
		allowedOrigins: cfg.AllowedOrigins,
		requireAuth:    cfg.RequireAuth,
		maxItems:       cfg.MaxItemsPerList,
	}
	if server.maxItems <= 0 {
		server.maxItems = defaultMaxItemsPerList
	}

	logrus.WithFields(logrus.Fields{
		"default_model":   reasoner.DefaultModel(),
		"mode":            mode.String(),
		"max_items":       server.maxItems,
		"require_auth":    server.requireAuth,
		"lexicon_words":   coined.Size(),
		"prompt_versions": registry.Versions(),
	}).Info("trademark opposition server configured")
	return server, nil
}

func buildGenerators(cfg Config) (*ai.Router, error) {
	generators := make(map[ai.Provider]ai.Generator, 2)
	if openai, err := ai.NewOpenAIGenerator(cfg.OpenAIConfig); err == nil {
		generators[ai.ProviderOpenAI] = openai
	} else if !errors.Is(err, ai.ErrDisabled) {
		return nil, fmt.Errorf("openai generator: %w", err)
	}
	if strings.TrimSpace(cfg.AnthropicAPIKey) != "" {
		anthropic, err := ai.NewAnthropicGenerator(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("anthropic generator: %w", err)
		}
		generators[ai.ProviderAnthropic] = anthropic
	}
	router := ai.NewRouter(generators)
	for _, provider := range []ai.Provider{ai.ProviderOpenAI, ai.ProviderAnthropic} {
		logrus.WithFields(logrus.Fields{
			"provider": provider,
			"enabled":  router.Serves(provider),
		}).Info("reasoning provider")
	}
	return router, nil
}

// Close releases the database handle.
func (s *Server) Close() error {
	return s.db.Close()
}

// Notifier exposes the websocket fan-out for batch progress.
func (s *Server) Notifier() *BatchNotifier {
	return s.notifier
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader}
	corsCfg.ExposeHeaders = []string{requestIDHeader}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/health", s.handleHealth)

	api := r.Group("/", s.requireAPIKey())
	{
		api.GET("/config", s.handleConfig)
		api.POST("/visual_similarity", s.handleVisualSimilarity)
		api.POST("/aural_similarity", s.handleAuralSimilarity)
		api.POST("/overall_similarity", s.handleOverallSimilarity)
		api.POST("/mark_similarity", s.handleMarkSimilarity)
		api.POST("/gs_similarity", s.handleGoodsSimilarity)
		api.POST("/batch_gs_similarity", s.handleBatchGoodsSimilarity)
		api.POST("/case_prediction", s.handleCasePrediction)
		api.POST("/predict", s.handlePredict)
		api.GET("/batch/stream", s.handleBatchStream)
		api.GET("/prompts", s.handleListPrompts)
		api.POST("/prompts/:name", s.handleSavePrompt)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"default_model":            s.reasoner.DefaultModel(),
		"supported_models":         ai.SupportedModels(),
		"reasoning_enabled":        s.reasoner.Enabled(),
		"strict_failure_mode":      s.batch.Mode() == batch.Strict,
		"max_batch_items_per_list": s.maxItems,
		"prompt_versions":          s.prompts.Versions(),
	})
}

const requestIDHeader = "X-Request-ID"

// requestID tags every request context with a correlation id, reusing the caller's when sent.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = util.ShortID()
		}
		c.Request = c.Request.WithContext(util.WithRequestID(c.Request.Context(), id))
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := util.StartTimer()
		c.Next()
		logrus.WithFields(logrus.Fields{
			"request_id":  util.RequestID(c.Request.Context()),
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"client":      c.GetString(apiClientKey),
			"duration_ms": timer.ElapsedMs(),
		}).Info("request handled")
	}
}
