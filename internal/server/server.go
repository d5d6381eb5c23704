package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/pcsensei/pcsensei/internal/utils"
	"github.com/pcsensei/pcsensei/pkg/recommend"
	"github.com/pcsensei/pcsensei/pkg/storage"
)

// Recommender answers recommendation requests. *recommend.Service satisfies it.
type Recommender interface {
	LaptopRecommendations(ctx context.Context, req recommend.Request) ([]recommend.ScoredLaptop, error)
	DesktopBuild(ctx context.Context, req recommend.Request) (*recommend.DesktopBuild, error)
}

// PriceChecker runs one price drift on demand. *drift.Scheduler satisfies it.
type PriceChecker interface {
	RunNow(ctx context.Context) ([]storage.PriceChange, error)
}

// History reads recorded price changes. *storage.DB satisfies it.
type History interface {
	ListChanges(ctx context.Context, opts storage.HistoryOptions) ([]storage.HistoryEntry, error)
	GetStats(ctx context.Context) ([]storage.CategoryStats, error)
}

type Server struct {
	Recommender Recommender
	Checker     PriceChecker
	History     History // optional
	LogDir      string
	Username    string
	Password    string
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/last-update", s.handleLastUpdate)
	mux.HandleFunc("POST /api/run-price-check", s.basicAuth(s.handleRunPriceCheck))
	mux.HandleFunc("GET /api/recommend/laptops", s.handleLaptops)
	mux.HandleFunc("GET /api/recommend/desktop", s.handleDesktop)
	mux.HandleFunc("GET /api/history", s.basicAuth(s.handleHistory))
	mux.HandleFunc("GET /api/stats", s.basicAuth(s.handleStats))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	})

	return cors(mux)
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Log.Infof("Starting server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
