// cmd/assistant-server/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"marketplace-assistant/internal/assistant/contentfilter"
	"marketplace-assistant/internal/assistant/contextbuilder"
	"marketplace-assistant/internal/assistant/conversation"
	"marketplace-assistant/internal/assistant/moderation"
	"marketplace-assistant/internal/assistant/queryinterpreter"
	"marketplace-assistant/internal/assistant/quota"
	"marketplace-assistant/internal/assistant/responsecomposer"
	"marketplace-assistant/internal/assistant/search"
	"marketplace-assistant/internal/common/config"
	"marketplace-assistant/internal/common/database"
	errs "marketplace-assistant/internal/common/errors"
	"marketplace-assistant/internal/common/llm"
	"marketplace-assistant/internal/common/logger"
	"marketplace-assistant/internal/common/observability"
	esstore "marketplace-assistant/internal/storage/elasticsearch"
	pgstore "marketplace-assistant/internal/storage/postgres"
	redisstore "marketplace-assistant/internal/storage/redis"
	"marketplace-assistant/internal/models"
)

// indexCandidateLimit bounds how many index hits feed the search filter when
// the event index is enabled.
const indexCandidateLimit = 200

// retryWithBackoff retries an operation with exponential backoff.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = operation(); err == nil {
			if attempt > 1 {
				log.Info("Operation succeeded after retry",
					zap.String("operation", operationName),
					zap.Int("attempt", attempt))
			}
			return nil
		}

		log.Warn("Operation failed, retrying",
			zap.String("operation", operationName),
			zap.Int("attempt", attempt),
			zap.Int("maxRetries", maxRetries),
			zap.Duration("retryIn", delay),
			zap.Error(err))

		time.Sleep(delay)
		delay *= 2
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// recordSource feeds search candidates. Events come from the event index when
// it is enabled, otherwise from postgres; listings always come from postgres.
type recordSource struct {
	store *pgstore.Store
	index *esstore.EventIndex
}

func (r *recordSource) GetEvents(ctx context.Context) ([]models.EventRecord, error) {
	if r.index != nil {
		return r.index.SearchEvents(ctx, "", indexCandidateLimit)
	}
	return r.store.GetEvents(ctx)
}

func (r *recordSource) GetListings(ctx context.Context) ([]models.ListingRecord, error) {
	return r.store.GetListings(ctx)
}

// server holds the HTTP handler dependencies.
type server struct {
	search         *search.Orchestrator
	conversations  *conversation.Orchestrator
	moderationGate *moderation.Gate
	sessions       *redisstore.Store
	pg             *database.PostgresClient
	redis          *database.RedisClient
	obs            *observability.Observability
	logger         logger.Logger
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Query  string `json:"query"`
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, span := s.obs.StartSpan(r.Context(), "search")
	defer span.End()

	result := s.search.Search(ctx, req.Query, req.UserID)
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		BusinessID string `json:"businessId"`
		Message    string `json:"message"`
		SessionID  string `json:"sessionId"`
		UserID     string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BusinessID == "" || req.Message == "" || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "businessId, message and sessionId are required")
		return
	}

	start := time.Now()
	ctx, span := s.obs.StartSpan(r.Context(), "assistant-turn")
	defer span.End()

	result, err := s.conversations.HandleTurn(ctx, req.BusinessID, req.Message, req.SessionID, req.UserID)
	if err != nil {
		// The answer was produced but could not be recorded. The caller
		// should resubmit rather than trust an unaccounted reply.
		s.logger.Error("turn persistence failed", map[string]interface{}{
			"businessId": req.BusinessID,
			"sessionId":  req.SessionID,
			"error":      err.Error(),
		})
		s.obs.RecordTurnProcessed(ctx, "persistence_error")
		s.obs.RecordTurnDuration(ctx, time.Since(start), "persistence_error")
		writeJSON(w, http.StatusServiceUnavailable, errs.NewStorageWriteFailedError("assistant-turn", err))
		return
	}

	outcome := "handled"
	if result.Success {
		outcome = "ok"
	}
	s.obs.RecordTurnProcessed(ctx, outcome)
	s.obs.RecordTurnDuration(ctx, time.Since(start), outcome)

	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleRate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		BusinessID string `json:"businessId"`
		SessionID  string `json:"sessionId"`
		Rating     int    `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BusinessID == "" || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "businessId and sessionId are required")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	if err := s.sessions.RateConversation(r.Context(), req.BusinessID, req.SessionID, req.Rating); err != nil {
		writeError(w, http.StatusServiceUnavailable, "could not record rating")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		BusinessID string `json:"businessId"`
		SessionID  string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BusinessID == "" || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "businessId and sessionId are required")
		return
	}

	if err := s.sessions.MarkResolved(r.Context(), req.BusinessID, req.SessionID); err != nil {
		writeError(w, http.StatusServiceUnavailable, "could not mark resolved")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleModerateSubmission screens listing or event content before it is
// persisted. Classifier outages hold the content for manual review instead of
// letting it through.
func (s *server) handleModerateSubmission(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Text     string `json:"text"`
		ImageURL string `json:"imageUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" && req.ImageURL == "" {
		writeError(w, http.StatusBadRequest, "text or imageUrl is required")
		return
	}

	ctx, span := s.obs.StartSpan(r.Context(), "moderate-submission")
	defer span.End()

	verdict := models.ModerationVerdict{Approved: true, Action: models.ActionApproved}
	if req.Text != "" {
		verdict = s.moderationGate.Classify(ctx, req.Text, moderation.FailClosed)
	}
	if req.ImageURL != "" && verdict.Action == models.ActionApproved {
		verdict = s.moderationGate.ClassifyImage(ctx, req.ImageURL, moderation.FailClosed)
	}

	writeJSON(w, http.StatusOK, verdict)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := s.pg.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "postgres unreachable",
		})
		return
	}
	if err := s.redis.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "redis unreachable",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting assistant server",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment))

	obs := observability.New(cfg.App.Name, os.Getenv("JAEGER_ENDPOINT"))
	defer obs.Shutdown()

	location, err := time.LoadLocation(cfg.Assistant.Timezone)
	if err != nil {
		zapLog.Fatal("Invalid assistant timezone", zap.Error(err))
	}

	// Postgres
	var pg *database.PostgresClient
	if err := retryWithBackoff(func() error {
		var connErr error
		pg, connErr = database.NewPostgres(cfg.Database.Postgres)
		if connErr != nil {
			return connErr
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "postgres connection"); err != nil {
		zapLog.Fatal("Could not connect to postgres", zap.Error(err))
	}
	defer pg.Close()

	// Redis
	var rdb *database.RedisClient
	if err := retryWithBackoff(func() error {
		var connErr error
		rdb, connErr = database.NewRedis(cfg.Database.Redis)
		if connErr != nil {
			return connErr
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "redis connection"); err != nil {
		zapLog.Fatal("Could not connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Elasticsearch, optional
	var eventIndex *esstore.EventIndex
	if cfg.Database.Elasticsearch.Enabled {
		var es *database.ElasticsearchClient
		if err := retryWithBackoff(func() error {
			var connErr error
			es, connErr = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if connErr != nil {
				return connErr
			}
			return es.Ping()
		}, 15, 2*time.Second, zapLog, "elasticsearch connection"); err != nil {
			zapLog.Fatal("Could not connect to elasticsearch", zap.Error(err))
		}
		eventIndex = esstore.New(es.Client, cfg.Database.Elasticsearch.EventIndex, log)
	}

	pgStore := pgstore.New(pg.DB, log)
	sessionStore := redisstore.New(rdb.Client, log)

	modelClient := llm.NewHTTPClient(&cfg.APIs.GenAI, log)
	if !modelClient.IsConfigured() {
		zapLog.Warn("GenAI client not configured, search falls back to keyword matching and business agents are degraded")
	}

	interpreter := queryinterpreter.New(modelClient, log)
	filter := contentfilter.New(location, nil)
	composer := responsecomposer.New(modelClient, cfg.Assistant.MaxSummaryItems, log)
	searcher := search.New(modelClient, interpreter, filter, composer, &recordSource{
		store: pgStore,
		index: eventIndex,
	}, pgStore, log)

	quotaGate := quota.New(sessionStore, log)
	textClassifier := moderation.NewHTTPClassifier(&cfg.APIs.Moderation, log)
	imageClassifier := moderation.NewHTTPImageClassifier(&cfg.APIs.Vision, log)
	moderationGate := moderation.New(textClassifier, imageClassifier,
		cfg.APIs.Moderation.RejectThresholds, cfg.APIs.Vision.RejectLikelihood, log)

	promptBuilder := contextbuilder.New(pgStore, contextbuilder.Limits{
		EventDays:     cfg.Assistant.PlatformEventDays,
		EventLimit:    cfg.Assistant.PlatformEventLimit,
		BusinessLimit: cfg.Assistant.PlatformBusinessLimit,
		PopularLimit:  cfg.Assistant.PlatformPopularLimit,
	}, log)

	conversations := conversation.New(pgStore, pgStore, sessionStore, quotaGate, moderationGate,
		promptBuilder, modelClient, cfg.APIs.GenAI.Temperature, log)

	srv := &server{
		search:         searcher,
		conversations:  conversations,
		moderationGate: moderationGate,
		sessions:       sessionStore,
		pg:             pg,
		redis:          rdb,
		obs:            obs,
		logger:         log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/search", srv.handleSearch)
	mux.HandleFunc("/api/assistant/chat", srv.handleChat)
	mux.HandleFunc("/api/assistant/rate", srv.handleRate)
	mux.HandleFunc("/api/assistant/resolve", srv.handleResolve)
	mux.HandleFunc("/api/moderation/submission", srv.handleModerateSubmission)
	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/ready", srv.handleReady)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	httpServer := &http.Server{
		Addr:         cfg.App.ListenAddr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.App.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	zapLog.Info("Shutdown signal received", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Assistant server stopped")
}
