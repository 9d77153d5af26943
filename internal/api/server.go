package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dormtycoon/internal/config"
	"dormtycoon/internal/game"
	"dormtycoon/internal/script"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const sessionContextKey contextKey = "session"

type Server struct {
	cfg   config.APIConfig
	log   *slog.Logger
	store *Store
	mux   *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, store *Store) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = NewStore(cfg.SessionTTL, cfg.MaxSessions, cfg.Seed, logger)
	}
	s := &Server{
		cfg:   cfg,
		log:   logger,
		store: store,
		mux:   chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": s.store.Len()})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)
		r.Post("/sessions", s.handleCreateSession)

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Use(s.sessionMiddleware)
			r.Get("/", s.handleSnapshot)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/work", s.handleAction(script.TypeWork))
			r.Post("/study", s.handleAction(script.TypeStudy))
			r.Post("/research", s.handleAction(script.TypeResearch))
			r.Post("/rest", s.handleAction(script.TypeRest))
			r.Post("/repair", s.handleAction(script.TypeRepair))
			r.Post("/buy", s.handleAction(script.TypeBuy))
			r.Post("/sell", s.handleAction(script.TypeSell))
			r.Post("/end-day", s.handleAction(script.TypeEndDay))
			r.Post("/dilemma", s.handleAction(script.TypeDilemma))
			r.Post("/script", s.handleScript)
		})
	})
}

// RunJanitor evicts idle sessions until ctx is cancelled.
func (s *Server) RunJanitor(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.store.Sweep()
		}
	}
}

func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		sess, err := s.store.get(chi.URLParam(r, "id"), token)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) (*session, error) {
	sess, ok := ctx.Value(sessionContextKey).(*session)
	if !ok || sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	variant, err := game.ParseVariant(r.URL.Query().Get("variant"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"variant":     variant,
		"instruments": game.NewCatalog(variant),
		"events":      game.EventCatalog(),
		"dilemmas":    game.DilemmaCatalog(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Variant string `json:"variant"`
		Seed    int64  `json:"seed"`
	}
	if err := decodeJSON(r, &in); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rules := s.cfg.Rules
	if strings.TrimSpace(in.Variant) != "" {
		variant, err := game.ParseVariant(in.Variant)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		rules.Variant = variant
	}

	sess, err := s.store.create(rules, in.Seed)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	sess.mu.Lock()
	snap := sess.engine.Snapshot()
	sess.mu.Unlock()
	s.log.Info("session created", "session", snap.SessionID, "variant", string(snap.Rules.Variant))
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": snap.SessionID,
		"token":      sess.token,
		"snapshot":   snap,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	sess.mu.Lock()
	snap := sess.engine.Snapshot()
	sess.mu.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.store.remove(id) {
		writeDomainError(w, ErrSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

type actionResponse struct {
	Action   script.Action   `json:"action"`
	Report   *game.DayReport `json:"report,omitempty"`
	Snapshot game.Snapshot   `json:"snapshot"`
}

type rejectionResponse struct {
	Error    string        `json:"error"`
	Snapshot game.Snapshot `json:"snapshot"`
}

func (s *Server) handleAction(typ string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromContext(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		action := script.Action{Type: typ}
		switch typ {
		case script.TypeBuy, script.TypeSell:
			var in struct {
				InstrumentID int `json:"instrument_id"`
				Quantity     int `json:"quantity"`
			}
			if err := decodeJSON(r, &in); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			action.InstrumentID = in.InstrumentID
			action.Quantity = in.Quantity
		case script.TypeDilemma:
			var in struct {
				Option string `json:"option"`
			}
			if err := decodeJSON(r, &in); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			action.Option = in.Option
		}

		sess.mu.Lock()
		defer sess.mu.Unlock()
		key := idempotencyKey(r)
		if cached, ok := sess.replay[key]; ok && key != "" {
			if cached.fingerprint != action.String() {
				writeDomainError(w, ErrDuplicateRequest)
				return
			}
			writeJSON(w, cached.status, cached.body)
			return
		}

		report, err := script.Apply(sess.engine, action)
		resp := cachedResponse{fingerprint: action.String()}
		if err != nil {
			resp.status = domainStatus(err)
			resp.body = rejectionResponse{Error: err.Error(), Snapshot: sess.engine.Snapshot()}
		} else {
			resp.status = http.StatusOK
			resp.body = actionResponse{Action: action, Report: report, Snapshot: sess.engine.Snapshot()}
		}
		sess.remember(key, resp)
		writeJSON(w, resp.status, resp.body)
	}
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var in struct {
		Actions []script.Action `json:"actions"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess.mu.Lock()
	results := script.Run(sess.engine, in.Actions)
	snap := sess.engine.Snapshot()
	sess.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "snapshot": snap})
}

func domainStatus(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, game.ErrInstrumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrTooManySessions):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrDuplicateRequest),
		errors.Is(err, game.ErrGameOver),
		errors.Is(err, game.ErrDilemmaPending),
		errors.Is(err, game.ErrNoDilemma):
		return http.StatusConflict
	case errors.Is(err, game.ErrTradingLocked):
		return http.StatusForbidden
	case errors.Is(err, game.ErrInsufficientFunds),
		errors.Is(err, game.ErrInsufficientShares),
		errors.Is(err, game.ErrInsufficientEnergy),
		errors.Is(err, game.ErrNoActionPoints),
		errors.Is(err, game.ErrHoldingCap),
		errors.Is(err, game.ErrSkillTooLow),
		errors.Is(err, game.ErrNotLocked),
		errors.Is(err, game.ErrInvalidQuantity),
		errors.Is(err, game.ErrInvalidOption),
		errors.Is(err, script.ErrUnknownAction):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, domainStatus(err), err.Error())
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("Idempotency-Key"))
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
