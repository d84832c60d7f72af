package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"mindful-assistant/internal/config"
	"mindful-assistant/internal/gateway"
	"mindful-assistant/internal/prompt"
	"mindful-assistant/internal/types"
)

const maxBodyBytes = 1 << 20

type Server struct {
	router  *chi.Mux
	cfg     config.Config
	gateway *gateway.Gateway
	prompt  prompt.Template
}

// NewServer wires the process-wide provider client and the active prompt
// template from cfg.
func NewServer(cfg config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tmpl := prompt.Default()
	if cfg.PromptFile != "" {
		var err error
		tmpl, err = prompt.Load(cfg.PromptFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load prompt template: %w", err)
		}
		log.Info().Str("file", cfg.PromptFile).Str("template", tmpl.Name).Msg("loaded prompt template")
	}
	client := gateway.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	return New(cfg, client, tmpl), nil
}

// New builds a server around an existing provider client.
func New(cfg config.Config, client gateway.ChatCompleter, tmpl prompt.Template) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(RequestLogger)
	r.Use(Recovery)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{cfg.AllowedOrigin},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With", "X-Request-Id"},
		MaxAge:         300,
	}))

	s := &Server{
		router: r,
		cfg:    cfg,
		gateway: gateway.New(client, gateway.Options{
			DefaultTemperature: cfg.DefaultTemperature,
			Timeout:            cfg.UpstreamTimeout,
		}),
		prompt: tmpl,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Post("/api/openai", s.handleCompletion)
	s.router.Get("/api/prompts/default", s.handleDefaultPrompt)
}

func (s *Server) Router() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ok"})
}

func (s *Server) handleDefaultPrompt(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.prompt)
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	var req types.PromptRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		log.Warn().Err(err).Str("request_id", chimw.GetReqID(r.Context())).Msg("[completion] invalid JSON body")
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := s.gateway.Complete(r.Context(), req)
	if err != nil {
		s.writeError(w, gateway.StatusOf(err), errorMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, types.ErrorResponse{Error: msg})
}

func errorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Failed to generate response"
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
