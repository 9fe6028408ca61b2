// Package drifttest provides an in-memory drift backend for tests.
//
// The server speaks the same envelope and endpoints as the real service but
// keeps everything in maps and replaces the routing and extraction models
// with small pluggable functions.
package drifttest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ziadkadry99/drift/pkg/drift"
)

// Decision is what a Router returns for one message.
type Decision struct {
	Action drift.RouteAction
	// Topic names the target branch for ROUTE and BRANCH. ROUTE to an unknown
	// topic is treated as BRANCH.
	Topic      string
	Reason     string
	Confidence float64
}

// Router decides where a message goes. current is nil for the first message
// of a conversation.
type Router func(branches []drift.Branch, current *drift.Branch, req drift.RouteRequest) Decision

// Extractor derives facts from one message.
type Extractor func(msg drift.Message) []drift.Fact

// Request is a call observed by the server.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

type failure struct {
	status int
	body   []byte
}

type conversation struct {
	branchIDs []string
	current   string
}

type branchState struct {
	branch    drift.Branch
	convID    string
	messages  []drift.Message
	facts     []drift.Fact
	extracted map[string]bool
}

// Server is a fake drift backend listening on a local port.
type Server struct {
	URL string

	srv       *httptest.Server
	apiKey    string
	delay     time.Duration
	router    Router
	extractor Extractor

	mu            sync.Mutex
	conversations map[string]*conversation
	branches      map[string]*branchState
	requests      []Request
	failures      []failure
	canceled      int
}

// Option configures a Server.
type Option func(*Server)

// WithAPIKey makes the server reject calls without "Bearer <key>".
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// WithDelay holds every response for d, or until the caller goes away.
func WithDelay(d time.Duration) Option {
	return func(s *Server) { s.delay = d }
}

// WithRouter replaces the default routing model.
func WithRouter(r Router) Option {
	return func(s *Server) { s.router = r }
}

// WithExtractor replaces the default fact extractor.
func WithExtractor(e Extractor) Option {
	return func(s *Server) { s.extractor = e }
}

// NewServer starts a fake backend and closes it when the test ends.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()
	s := &Server{
		router:        StickyRouter,
		extractor:     ColonExtractor,
		conversations: make(map[string]*conversation),
		branches:      make(map[string]*branchState),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = httptest.NewServer(s.buildRouter())
	s.URL = s.srv.URL
	t.Cleanup(s.srv.Close)
	return s
}

// Close shuts the server down. It is safe to call more than once.
func (s *Server) Close() {
	s.srv.Close()
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(s.authorize)
	r.Use(s.hold)
	r.Use(s.injectFailure)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/drift/route", s.handleRoute)
		r.Get("/drift/branches/{conversationID}", s.handleBranches)
		r.Get("/context/{branchID}", s.handleContext)
		r.Post("/facts/{branchID}/extract", s.handleExtract)
		r.Get("/facts/{branchID}", s.handleFacts)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	return r
}

// Requests returns every call received so far, oldest first.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent call. It panics when there is none.
func (s *Server) LastRequest() Request {
	reqs := s.Requests()
	return reqs[len(reqs)-1]
}

// Canceled counts delayed calls abandoned by the client before a response.
func (s *Server) Canceled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canceled
}

// FailNext makes the next call answer with an error envelope. An empty
// message leaves the error object out.
func (s *Server) FailNext(status int, message string) {
	env := map[string]any{"success": false}
	if message != "" {
		env["error"] = map[string]string{"message": message}
	}
	body, _ := json.Marshal(env)
	s.RespondNext(status, body)
}

// RespondNext makes the next call answer with a raw body.
func (s *Server) RespondNext(status int, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{status: status, body: body})
}

// AddBranch seeds a branch and makes it the conversation's current branch.
func (s *Server) AddBranch(conversationID, topic, parentID string) drift.Branch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newBranchLocked(conversationID, topic, parentID).branch
}

// AddMessage appends a message to a branch.
func (s *Server) AddMessage(branchID string, role drift.Role, content string) drift.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendMessageLocked(s.branches[branchID], role, content)
}

// AddFact attaches a fact to a branch.
func (s *Server) AddFact(branchID, key, value string, confidence float64) drift.Fact {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.branches[branchID]
	f := drift.Fact{ID: uuid.NewString(), Key: key, Value: value, Confidence: confidence}
	b.facts = append(b.facts, f)
	b.branch.FactCount = len(b.facts)
	return f
}

func (s *Server) newBranchLocked(convID, topic, parentID string) *branchState {
	conv, ok := s.conversations[convID]
	if !ok {
		conv = &conversation{}
		s.conversations[convID] = conv
	}
	now := time.Now().UTC()
	b := &branchState{
		branch: drift.Branch{
			ID:        uuid.NewString(),
			Topic:     topic,
			ParentID:  parentID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		convID:    convID,
		extracted: make(map[string]bool),
	}
	s.branches[b.branch.ID] = b
	conv.branchIDs = append(conv.branchIDs, b.branch.ID)
	conv.current = b.branch.ID
	return b
}

func (s *Server) appendMessageLocked(b *branchState, role drift.Role, content string) drift.Message {
	m := drift.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	b.messages = append(b.messages, m)
	b.branch.MessageCount = len(b.messages)
	b.branch.UpdatedAt = m.CreatedAt
	return m
}

// Middleware

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		path := r.URL.EscapedPath()
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("Authorization") != "Bearer "+s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) hold(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.delay > 0 {
			select {
			case <-time.After(s.delay):
			case <-r.Context().Done():
				s.mu.Lock()
				s.canceled++
				s.mu.Unlock()
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var f *failure
		if len(s.failures) > 0 {
			f = &s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()
		if f != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			w.Write(f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Handlers

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req drift.RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConversationID == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "conversationId and content are required")
		return
	}
	if req.Role == "" {
		req.Role = drift.RoleUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var branches []drift.Branch
	var current *drift.Branch
	conv := s.conversations[req.ConversationID]
	if conv != nil {
		branches = s.branchListLocked(conv)
		if cur, ok := s.branches[conv.current]; ok {
			b := cur.branch
			current = &b
		}
	}

	d := s.router(branches, current, req)
	previous := ""
	if current != nil {
		previous = current.ID
	}

	var target *branchState
	isNew := false
	switch d.Action {
	case drift.ActionStay:
		if current != nil {
			target = s.branches[current.ID]
		}
	case drift.ActionRoute:
		for _, b := range branches {
			if b.Topic == d.Topic {
				target = s.branches[b.ID]
				break
			}
		}
	}
	if target == nil {
		topic := d.Topic
		if topic == "" {
			topic = "general"
		}
		target = s.newBranchLocked(req.ConversationID, topic, previous)
		d.Action = drift.ActionBranch
		isNew = true
	}
	s.conversations[req.ConversationID].current = target.branch.ID

	msg := s.appendMessageLocked(target, req.Role, req.Content)
	res := drift.RouteResult{
		Action:      d.Action,
		BranchID:    target.branch.ID,
		BranchTopic: target.branch.Topic,
		MessageID:   msg.ID,
		IsNewBranch: isNew,
		Reason:      d.Reason,
		Confidence:  d.Confidence,
	}
	if previous != "" && previous != target.branch.ID {
		res.PreviousBranchID = previous
	}
	writeData(w, http.StatusOK, res)
}

func (s *Server) handleBranches(w http.ResponseWriter, r *http.Request) {
	convID := urlParam(r, "conversationID")

	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[convID]
	if !ok {
		writeData(w, http.StatusOK, []drift.Branch{})
		return
	}
	writeData(w, http.StatusOK, s.branchListLocked(conv))
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	branchID := urlParam(r, "branchID")

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.branches[branchID]
	if !ok {
		writeError(w, http.StatusNotFound, "branch not found")
		return
	}

	all := []drift.BranchFacts{{
		BranchID:    b.branch.ID,
		BranchTopic: b.branch.Topic,
		Facts:       nonNilFacts(b.facts),
		IsCurrent:   true,
	}}
	for _, id := range s.conversations[b.convID].branchIDs {
		if id == b.branch.ID {
			continue
		}
		other := s.branches[id]
		all = append(all, drift.BranchFacts{
			BranchID:    other.branch.ID,
			BranchTopic: other.branch.Topic,
			Facts:       nonNilFacts(other.facts),
		})
	}

	messages := make([]drift.Message, len(b.messages))
	copy(messages, b.messages)
	writeData(w, http.StatusOK, drift.Context{
		BranchID:    b.branch.ID,
		BranchTopic: b.branch.Topic,
		Messages:    messages,
		AllFacts:    all,
	})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	branchID := urlParam(r, "branchID")

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.branches[branchID]
	if !ok {
		writeError(w, http.StatusNotFound, "branch not found")
		return
	}

	count := 0
	for _, m := range b.messages {
		if b.extracted[m.ID] {
			continue
		}
		b.extracted[m.ID] = true
		for _, f := range s.extractor(m) {
			if f.ID == "" {
				f.ID = uuid.NewString()
			}
			f.MessageID = m.ID
			b.facts = append(b.facts, f)
			count++
		}
	}
	b.branch.FactCount = len(b.facts)

	writeData(w, http.StatusOK, drift.FactsResult{
		BranchID:       b.branch.ID,
		Facts:          nonNilFacts(b.facts),
		ExtractedCount: count,
	})
}

func (s *Server) handleFacts(w http.ResponseWriter, r *http.Request) {
	branchID := urlParam(r, "branchID")

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.branches[branchID]
	if !ok {
		writeError(w, http.StatusNotFound, "branch not found")
		return
	}
	writeData(w, http.StatusOK, nonNilFacts(b.facts))
}

func (s *Server) branchListLocked(conv *conversation) []drift.Branch {
	out := make([]drift.Branch, 0, len(conv.branchIDs))
	for _, id := range conv.branchIDs {
		out = append(out, s.branches[id].branch)
	}
	return out
}

// StickyRouter keeps every message in the current branch and opens a
// "general" branch for the first message of a conversation.
func StickyRouter(_ []drift.Branch, current *drift.Branch, _ drift.RouteRequest) Decision {
	if current == nil {
		return Decision{Action: drift.ActionBranch, Topic: "general", Reason: "first message", Confidence: 1}
	}
	return Decision{Action: drift.ActionStay, Reason: "same topic", Confidence: 0.9}
}

// ColonExtractor turns every "key: value" line of a user message into a fact.
func ColonExtractor(msg drift.Message) []drift.Fact {
	if msg.Role != drift.RoleUser {
		return nil
	}
	var facts []drift.Fact
	for _, line := range strings.Split(msg.Content, "\n") {
		key, value, ok := strings.Cut(line, ":")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			continue
		}
		facts = append(facts, drift.Fact{Key: key, Value: value, Confidence: 0.8})
	}
	return facts
}

func urlParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func nonNilFacts(facts []drift.Fact) []drift.Fact {
	if facts == nil {
		return []drift.Fact{}
	}
	out := make([]drift.Fact, len(facts))
	copy(out, facts)
	return out
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   map[string]string{"message": message},
	})
}
