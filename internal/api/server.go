package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"classtrade/internal/admin"
	"classtrade/internal/aigen"
	"classtrade/internal/auth"
	"classtrade/internal/config"
	"classtrade/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

type contextKey string

const principalContextKey contextKey = "principal"

// Principal is the authenticated caller.
type Principal struct {
	Role    string
	ID      int64
	ClassID int64
}

type Server struct {
	cfg    config.APIConfig
	log    *slog.Logger
	tokens *auth.Issuer
	game   *game.Service
	admin  *admin.Service
	gen    *aigen.Generator
	mux    *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, tokens *auth.Issuer, gameSvc *game.Service, adminSvc *admin.Service, gen *aigen.Generator) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		log:    logger,
		tokens: tokens,
		game:   gameSvc,
		admin:  adminSvc,
		gen:    gen,
		mux:    chi.NewRouter(),
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
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/qr-login", s.handleQRLoginLink)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/admin/login", s.handleAdminLogin)
		r.Post("/student/login", s.handleStudentLogin)
		r.Post("/student/qr-login", s.handleQRLogin)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)

			r.Get("/clients", s.handleClientsList)
			r.Post("/clients", s.handleClientCreate)
			r.Get("/clients/{id}", s.handleClientGet)
			r.Put("/clients/{id}", s.handleClientUpdate)
			r.Delete("/clients/{id}", s.handleClientDelete)
			r.Get("/clients/{id}/managers", s.handleManagersList)

			r.Post("/managers", s.handleManagerCreate)
			r.Put("/managers/{id}", s.handleManagerUpdate)
			r.Delete("/managers/{id}", s.handleManagerDelete)

			r.Get("/classes", s.handleClassesList)
			r.Post("/classes", s.handleClassCreate)
			r.Get("/classes/{id}", s.handleClassGet)
			r.Put("/classes/{id}", s.handleClassUpdate)
			r.Delete("/classes/{id}", s.handleClassDelete)
			r.Post("/classes/{id}/status", s.handleClassStatus)
			r.Post("/classes/{id}/day/advance", s.handleDayAdvance)
			r.Post("/classes/{id}/day/rewind", s.handleDayRewind)
			r.Get("/classes/{id}/overview", s.handleClassOverview)
			r.Get("/classes/{id}/ranking", s.handleClassRanking)
			r.Get("/classes/{id}/qr/{guestID}", s.handleGuestQR)
			r.Post("/classes/{id}/generate", s.handleGenerate)
			r.Get("/classes/{id}/guests", s.handleGuestsList)
			r.Post("/classes/{id}/guests", s.handleGuestCreate)
			r.Post("/classes/{id}/guests/bulk", s.handleGuestsBulk)
			r.Post("/classes/{id}/guests/upload", s.handleGuestsUpload)

			r.Get("/guests/{id}", s.handleGuestGet)
			r.Put("/guests/{id}", s.handleGuestUpdate)
			r.Delete("/guests/{id}", s.handleGuestDelete)

			r.Get("/stocks", s.handleAdminStocksList)
			r.Post("/stocks", s.handleStockCreate)
			r.Get("/stocks/{id}", s.handleStockGet)
			r.Put("/stocks/{id}", s.handleStockUpdate)
			r.Delete("/stocks/{id}", s.handleStockDelete)

			r.Get("/news", s.handleNewsList)
			r.Post("/news", s.handleNewsCreate)
			r.Put("/news/{id}", s.handleNewsUpdate)
			r.Delete("/news/{id}", s.handleNewsDelete)

			r.Get("/prices", s.handlePricesList)
			r.Put("/prices", s.handlePriceUpsert)
			r.Delete("/prices/{id}", s.handlePriceDelete)
		})

		r.Route("/student", func(r chi.Router) {
			r.Use(s.requireGuest)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/ranking", s.handleStudentRanking)
			r.Get("/stocks", s.handleStocksList)
			r.Get("/stocks/{id}", s.handleStockDetail)
			r.Get("/news", s.handleStudentNews)
			r.Get("/transactions", s.handleTransactions)
			r.Post("/nickname", s.handleNickname)
			r.Post("/buy", s.handleBuy)
			r.Post("/sell", s.handleSell)
		})
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) authenticate(r *http.Request, role string) (Principal, error) {
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return Principal{}, errMissingToken
	}
	claims, err := s.tokens.Parse(token, role)
	if err != nil {
		return Principal{}, err
	}
	id, err := claims.SubjectID()
	if err != nil {
		return Principal{}, err
	}
	return Principal{Role: claims.Role, ID: id, ClassID: claims.ClassID}, nil
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := s.authenticate(r, auth.RoleAdmin)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalContextKey, p)))
	})
}

// requireGuest also rejects students whose class has ended or who were
// removed after the token was issued.
func (s *Server) requireGuest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := s.authenticate(r, auth.RoleGuest)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		g, status, err := s.game.Guest(r.Context(), p.ID)
		if errors.Is(err, game.ErrGuestNotFound) {
			writeError(w, http.StatusUnauthorized, "session is no longer valid")
			return
		}
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		if g.ClassID != p.ClassID {
			s.writeDomainError(w, r, auth.ErrClassMismatch)
			return
		}
		if status == game.StatusEnded {
			s.writeDomainError(w, r, game.ErrClassEnded)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalContextKey, p)))
	})
}

func principalFromContext(ctx context.Context) (Principal, error) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	if !ok || p.ID == 0 {
		return Principal{}, errors.New("missing auth context")
	}
	return p, nil
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return &badRequestError{err: err}
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &badRequestError{err: errors.New("invalid " + name)}
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, &badRequestError{err: errors.New("invalid " + name)}
	}
	return n, nil
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
