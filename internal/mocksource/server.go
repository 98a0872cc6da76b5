package mocksource

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/edupulse/edusync/pkg/logger"
)

const defaultRowsPerPage = 500

// Server answers the paginated records API over a Dataset.
type Server struct {
	data   *Dataset
	appID  string
	apiKey string
	log    logger.Logger
}

// NewServer creates a mock source server. Credentials are checked the
// way the real source checks them; empty values disable the check.
func NewServer(data *Dataset, appID, apiKey string) *Server {
	return &Server{
		data:   data,
		appID:  appID,
		apiKey: apiKey,
		log:    logger.Named("mocksource"),
	}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/objects/", s.handleRecords)
	return mux
}

type pageResponse struct {
	Records      []map[string]any `json:"records"`
	TotalPages   int              `json:"total_pages"`
	TotalRecords int              `json:"total_records"`
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if s.appID != "" && (r.Header.Get("X-App-ID") != s.appID || r.Header.Get("X-API-Key") != s.apiKey) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// /objects/{stream}/records
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[2] != "records" {
		http.NotFound(w, r)
		return
	}
	records, ok := s.data.Streams[parts[1]]
	if !ok {
		http.NotFound(w, r)
		return
	}

	page := queryInt(r, "page", 1)
	rows := queryInt(r, "rows_per_page", defaultRowsPerPage)
	if page < 1 || rows < 1 {
		http.Error(w, "bad paging", http.StatusBadRequest)
		return
	}

	total := len(records)
	totalPages := (total + rows - 1) / rows
	start := (page - 1) * rows
	if start > total {
		start = total
	}
	end := start + rows
	if end > total {
		end = total
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(pageResponse{
		Records:      records[start:end],
		TotalPages:   totalPages,
		TotalRecords: total,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}
