// Package dashboardtest provides a fake statistics dashboard for tests.
package dashboardtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nregsmp/nregsreport/internal/model"
)

// Server is an httptest server serving the dashboard API from in-memory rows.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	state    map[string][]model.Row
	blocks   map[string][]model.Row
	gps      map[string][]model.Row
	failures map[string]int
	requests atomic.Int64
	paths    []string
}

// NewServer starts a fake dashboard with no data. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		state:    make(map[string][]model.Row),
		blocks:   make(map[string][]model.Row),
		gps:      make(map[string][]model.Row),
		failures: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// NewFullServer starts a fake dashboard holding data for every endpoint.
func NewFullServer() *Server {
	s := NewServer()
	for endpoint, rows := range StateRows() {
		s.SetState(endpoint, rows)
	}
	for endpoint, rows := range SidhiBlockRows() {
		s.SetBlocks(endpoint, "SIDHI", rows)
	}
	for _, block := range Blocks {
		for endpoint, rows := range PanchayatRows(block) {
			s.SetPanchayats(endpoint, "SIDHI", block, rows)
		}
	}
	return s
}

// SetState sets the state-level rows of endpoint.
func (s *Server) SetState(endpoint string, rows []model.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[endpoint] = rows
}

// SetBlocks sets the block-level rows of endpoint for district.
func (s *Server) SetBlocks(endpoint, district string, rows []model.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[endpoint+"|"+district] = rows
}

// SetPanchayats sets the panchayat rows of endpoint for block in district.
func (s *Server) SetPanchayats(endpoint, district, block string, rows []model.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gps[endpoint+"|"+district+"|"+block] = rows
}

// Remove drops every row of endpoint, so that it answers with no results.
func (s *Server) Remove(endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state, endpoint)
	for key := range s.blocks {
		if strings.HasPrefix(key, endpoint+"|") {
			delete(s.blocks, key)
		}
	}
	for key := range s.gps {
		if strings.HasPrefix(key, endpoint+"|") {
			delete(s.gps, key)
		}
	}
}

// Fail makes endpoint answer with status on every request.
func (s *Server) Fail(endpoint string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[endpoint] = status
}

// Requests returns the number of requests served.
func (s *Server) Requests() int {
	return int(s.requests.Load())
}

// Paths returns the request URIs served, in order.
func (s *Server) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)

	s.mu.Lock()
	s.paths = append(s.paths, r.URL.RequestURI())
	endpoint := strings.TrimPrefix(r.URL.Path, "/api/employment_workers/")
	status, failing := s.failures[endpoint]
	var rows []model.Row
	q := r.URL.Query()
	switch district, block := q.Get("district"), q.Get("block"); {
	case block != "":
		rows = s.gps[endpoint+"|"+district+"|"+block]
	case district != "":
		rows = s.blocks[endpoint+"|"+district]
	default:
		rows = s.state[endpoint]
	}
	s.mu.Unlock()

	if failing {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if r.URL.Query().Get("date") == "" {
		http.Error(w, "date is required", http.StatusBadRequest)
		return
	}
	if rows == nil {
		rows = []model.Row{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"results": rows}) //nolint:errcheck // test server
}
