package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/pcsensei/pcsensei/internal/utils"
	"github.com/pcsensei/pcsensei/pkg/drift"
	"github.com/pcsensei/pcsensei/pkg/recommend"
	"github.com/pcsensei/pcsensei/pkg/storage"
)

const defaultHistoryLimit = 50

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Log.Debugf("Writing response: %v", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "API server running"})
}

type lastUpdateResponse struct {
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp,omitempty"`
	Message   string `json:"message,omitempty"`
}

func (s *Server) handleLastUpdate(w http.ResponseWriter, r *http.Request) {
	ts, ok, err := drift.LastUpdate(s.LogDir)
	if err != nil {
		utils.Log.Warnf("Reading last update: %v", err)
	}
	if !ok {
		writeJSON(w, http.StatusOK, lastUpdateResponse{Message: "No price updates yet"})
		return
	}
	writeJSON(w, http.StatusOK, lastUpdateResponse{Success: true, Timestamp: ts})
}

type priceCheckResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Updates []storage.PriceChange `json:"updates,omitempty"`
	Output  string                `json:"output,omitempty"`
	Error   string                `json:"error,omitempty"`
}

func (s *Server) handleRunPriceCheck(w http.ResponseWriter, r *http.Request) {
	utils.Log.Info("Price check triggered over HTTP")
	start := time.Now()
	changes, err := s.Checker.RunNow(r.Context())
	switch {
	case errors.Is(err, drift.ErrRunInProgress):
		writeJSON(w, http.StatusConflict, priceCheckResponse{Message: "Price check already running", Error: err.Error()})
		return
	case err != nil:
		utils.Log.Errorf("Price check failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, priceCheckResponse{Message: "Price check failed", Error: err.Error()})
		return
	}

	resp := priceCheckResponse{
		Success: true,
		Message: "Price check completed successfully",
		Updates: changes,
	}
	if len(changes) > 0 {
		resp.Output = drift.Summary(start, changes)
	} else {
		resp.Output = "No changes needed"
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseRequest reads budget, usage, cpu and gpu from the query string.
func parseRequest(r *http.Request) (recommend.Request, error) {
	q := r.URL.Query()
	budget, err := strconv.Atoi(q.Get("budget"))
	if err != nil {
		return recommend.Request{}, recommend.ErrInvalidBudget
	}
	return recommend.Request{
		Budget: budget,
		Usage:  recommend.ParseUsage(q.Get("usage")),
		Preferences: recommend.Preferences{
			CPU: q.Get("cpu"),
			GPU: q.Get("gpu"),
		},
	}, nil
}

func recommendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recommend.ErrInvalidBudget):
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
	case errors.Is(err, recommend.ErrNoCandidates):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{err.Error()})
	default:
		utils.Log.Errorf("Recommendation failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{err.Error()})
	}
}

func (s *Server) handleLaptops(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		recommendError(w, err)
		return
	}
	laptops, err := s.Recommender.LaptopRecommendations(r.Context(), req)
	if err != nil {
		recommendError(w, err)
		return
	}
	if laptops == nil {
		laptops = []recommend.ScoredLaptop{}
	}
	writeJSON(w, http.StatusOK, laptops)
}

func (s *Server) handleDesktop(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		recommendError(w, err)
		return
	}
	build, err := s.Recommender.DesktopBuild(r.Context(), req)
	if err != nil {
		recommendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, build)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{"history is not enabled"})
		return
	}
	q := r.URL.Query()
	opts := storage.HistoryOptions{
		Category: q.Get("category"),
		ItemID:   q.Get("id"),
		Limit:    defaultHistoryLimit,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{"invalid limit"})
			return
		}
		opts.Limit = n
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{"invalid since, want RFC3339"})
			return
		}
		opts.Since = t
	}

	entries, err := s.History.ListChanges(r.Context(), opts)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{err.Error()})
		return
	}
	if entries == nil {
		entries = []storage.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{"history is not enabled"})
		return
	}
	stats, err := s.History.GetStats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
