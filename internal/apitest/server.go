// Package apitest provides an in-memory implementation of the wallet backend
// for tests and local development.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"expense-wallet/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// Request is a recorded inbound request.
type Request struct {
	Method        string
	Path          string
	Authorization string
	ContentType   string
	Body          []byte
}

// Fault is a canned error response returned instead of handling a request.
type Fault struct {
	Status int
	Body   any
}

type account struct {
	user     models.User
	password string
}

// Server is a fake backend. The zero value is not usable; call New.
type Server struct {
	mu sync.Mutex

	accounts     map[string]*account
	budgets      map[int64]*models.Budget
	receipts     map[int64]*models.Receipt
	receiptLinks map[int64][]int64 // receipt id -> budget ids
	tokens       map[string]int64
	nextID       int64

	loginToken    string
	loginResponse map[string]any
	faults        map[string]Fault
	requests      []Request
	now           func() time.Time

	router *mux.Router
}

// New returns an empty fake backend.
func New() *Server {
	s := &Server{
		accounts:     make(map[string]*account),
		budgets:      make(map[int64]*models.Budget),
		receipts:     make(map[int64]*models.Receipt),
		receiptLinks: make(map[int64][]int64),
		tokens:       make(map[string]int64),
		faults:       make(map[string]Fault),
		now:          time.Now,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recordMiddleware, s.faultMiddleware)

	r.HandleFunc("/api/users/", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login/", s.handleLogin).Methods(http.MethodPost)

	authed := r.NewRoute().Subrouter()
	authed.Use(s.authMiddleware)
	authed.HandleFunc("/logout/", s.handleLogout).Methods(http.MethodPost)
	authed.HandleFunc("/api/process-receipt/", s.handleProcessReceipt).Methods(http.MethodPost)
	authed.HandleFunc("/api/receipts/", s.handleListReceipts).Methods(http.MethodGet)
	authed.HandleFunc("/api/receipts/{id}/", s.handleUpdateReceipt).Methods(http.MethodPatch)
	authed.HandleFunc("/api/budgets/", s.handleCreateBudget).Methods(http.MethodPost)
	authed.HandleFunc("/api/budgets/", s.handleListBudgets).Methods(http.MethodGet)
	authed.HandleFunc("/api/budgets/{id}/", s.handleDeleteBudget).Methods(http.MethodDelete)
	authed.HandleFunc("/api/budgets/{id}", s.handleGetBudget).Methods(http.MethodGet)
	authed.HandleFunc("/api/budgets/{id}/", s.handleGetBudget).Methods(http.MethodGet)
	authed.HandleFunc("/api/budget-report/{id}/", s.handleReport).Methods(http.MethodGet)
	authed.HandleFunc("/api/budget-report/{id}/xlsx/", s.handleReportXlsx).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// LastRequest returns the most recent request for method and path.
func (s *Server) LastRequest(method, path string) (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].Method == method && s.requests[i].Path == path {
			return s.requests[i], true
		}
	}
	return Request{}, false
}

// SetFault makes every request for method and path fail with f until cleared.
func (s *Server) SetFault(method, path string, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method+" "+path] = f
}

// ClearFaults removes all injected faults.
func (s *Server) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.faults)
}

// SetLoginToken makes successful logins return token instead of a generated one.
func (s *Server) SetLoginToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginToken = token
}

// SetLoginResponse replaces the body of successful logins entirely.
func (s *Server) SetLoginResponse(body map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginResponse = body
}

// SetClock overrides the time used for upload timestamps.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// AddUser creates an account directly and returns its id.
func (s *Server) AddUser(email, password, fullName string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID()
	s.accounts[strings.ToLower(email)] = &account{
		user:     models.User{ID: &id, Email: email, FullName: fullName},
		password: password,
	}
	return id
}

// IssueToken registers a token for userID without a login round trip.
func (s *Server) IssueToken(userID int64, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = userID
}

// AddReceipt stores a receipt for userID, links it to matching budgets and returns its id.
func (s *Server) AddReceipt(userID int64, r models.Receipt) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.newID()
	r.UserID = userID
	if r.UploadedAt == "" {
		r.UploadedAt = s.now().Format(backendDate)
	}
	if r.ParsedItems == nil {
		r.ParsedItems = []models.ParsedItem{}
	}
	s.receipts[r.ID] = &r
	s.assignToBudgets(&r)
	return r.ID
}

func (s *Server) newID() int64 {
	s.nextID++
	return s.nextID
}

func (s *Server) recordMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body.Close()
			r.Body = io.NopCloser(strings.NewReader(string(body)))
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
			Body:          body,
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) faultMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		f, ok := s.faults[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if f.Body == nil {
			w.WriteHeader(f.Status)
			return
		}
		writeJSON(w, f.Status, f.Body)
	})
}

type userIDKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		s.mu.Lock()
		_, ok := s.tokens[token]
		s.mu.Unlock()
		if token == "" || !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Authentication credentials were not provided.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// currentUser must be called with s.mu held.
func (s *Server) currentUser(r *http.Request) int64 {
	return s.tokens[r.Header.Get("Authorization")]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", mux.Vars(r)["id"])
	}
	return id, nil
}

func newToken() string {
	return "Token " + uuid.NewString()
}

func sumAmounts(receipts []*models.Receipt) decimal.Decimal {
	total := decimal.Zero
	for _, r := range receipts {
		if r.TotalAmount.Valid {
			total = total.Add(r.TotalAmount.Decimal)
		}
	}
	return total
}
