// Package reviewtest provides a scripted in-process stand-in for the
// review service, for tests and examples. Each function name can be
// given a sequence of states; submissions return the first state and
// every status poll advances toward the last one, which then sticks
// (terminal states are stable).
package reviewtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/quailyquaily/morphgate/review"
)

type script struct {
	states          []review.State
	requestedChange string
}

type taskRecord struct {
	id              string
	states          []review.State
	idx             int
	requestedChange string
	statusCalls     int
}

type Server struct {
	ts *httptest.Server

	mu          sync.Mutex
	scripts     map[string]script
	tasks       map[string]*taskRecord
	submissions []review.Task
	nextID      int

	// FailSubmits makes every submission return HTTP 500.
	FailSubmits bool
}

func NewServer() *Server {
	s := &Server{
		scripts: make(map[string]script),
		tasks:   make(map[string]*taskRecord),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/review-tasks", s.handleSubmit)
	mux.HandleFunc("GET /v1/review-tasks/{id}", s.handleStatus)
	s.ts = httptest.NewServer(mux)
	return s
}

func (s *Server) URL() string { return s.ts.URL }

func (s *Server) Close() { s.ts.Close() }

// Script sets the state sequence returned for tasks submitted under
// functionName. requestedChange is reported alongside blocking states.
func (s *Server) Script(functionName, requestedChange string, states ...review.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[functionName] = script{states: states, requestedChange: requestedChange}
}

// Submissions returns every task received so far, in order.
func (s *Server) Submissions() []review.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]review.Task, len(s.submissions))
	copy(out, s.submissions)
	return out
}

// SubmissionNames returns the function names of all received tasks.
func (s *Server) SubmissionNames() []string {
	subs := s.Submissions()
	out := make([]string, 0, len(subs))
	for _, t := range subs {
		out = append(out, t.FunctionName)
	}
	return out
}

// StatusCalls reports how many status polls a task has received.
func (s *Server) StatusCalls(reviewTaskID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.tasks[reviewTaskID]; ok {
		return rec.statusCalls
	}
	return 0
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var task review.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if s.FailSubmits {
		s.mu.Unlock()
		http.Error(w, "review service unavailable", http.StatusInternalServerError)
		return
	}
	s.submissions = append(s.submissions, task)
	sc, ok := s.scripts[task.FunctionName]
	if !ok || len(sc.states) == 0 {
		sc = script{states: []review.State{review.StateApproved}}
	}
	s.nextID++
	rec := &taskRecord{
		id:              fmt.Sprintf("rt_%04d", s.nextID),
		states:          sc.states,
		requestedChange: sc.requestedChange,
	}
	s.tasks[rec.id] = rec
	v := rec.verdict()
	s.mu.Unlock()

	writeJSON(w, v)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))

	s.mu.Lock()
	rec, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		http.Error(w, "review task not found", http.StatusNotFound)
		return
	}
	rec.statusCalls++
	if rec.idx < len(rec.states)-1 {
		rec.idx++
	}
	v := rec.verdict()
	s.mu.Unlock()

	writeJSON(w, v)
}

func (r *taskRecord) verdict() review.Verdict {
	state := r.states[r.idx]
	v := review.Verdict{ReviewTaskID: r.id, State: state}
	if state == review.StateRejected || state == review.StateChangeRequested {
		v.RequestedChange = r.requestedChange
	}
	return v
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
