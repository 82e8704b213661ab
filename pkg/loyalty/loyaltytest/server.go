// Package loyaltytest runs an in-memory loyalty service for tests.
package loyaltytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"loyalty-connector/pkg/loyalty"

	"github.com/go-chi/chi/v5"
)

const (
	RouteSendEvent      = "POST /events"
	RouteGetCustomer    = "GET /customers/{identifier}"
	RouteCreateCustomer = "POST /customers/"
	RouteListOptions    = "GET /redemption_options"
	RouteRedeem         = "POST /customers/{id}/redemptions"

	DefaultAPIKey    = "st_test_key"
	DefaultAPISecret = "st_test_secret"
)

type Server struct {
	*httptest.Server

	APIKey    string
	APISecret string

	mu          sync.Mutex
	nextID      int
	customers   map[string]*loyalty.Customer
	options     []loyalty.RedemptionOption
	events      []map[string]any
	redemptions []Redemption
	calls       map[string]int
	failures    map[string]int
}

type Redemption struct {
	CustomerID string
	Points     int64
	OptionID   string
}

func New(t *testing.T) *Server {
	t.Helper()

	s := &Server{
		APIKey:    DefaultAPIKey,
		APISecret: DefaultAPISecret,
		nextID:    1000,
		customers: make(map[string]*loyalty.Customer),
		calls:     make(map[string]int),
		failures:  make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(s.authMiddleware)
	r.Post("/events", s.track(RouteSendEvent, s.sendEvent))
	r.Get("/customers/{identifier}", s.track(RouteGetCustomer, s.getCustomer))
	r.Post("/customers/", s.track(RouteCreateCustomer, s.createCustomer))
	r.Get("/redemption_options", s.track(RouteListOptions, s.listOptions))
	r.Post("/customers/{id}/redemptions", s.track(RouteRedeem, s.redeem))

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Client returns a gateway client pointed at the fake with valid credentials.
func (s *Server) Client() *loyalty.Client {
	return loyalty.NewClient(loyalty.Config{
		BaseURL:    s.URL,
		APIKey:     s.APIKey,
		APISecret:  s.APISecret,
		AuthScheme: loyalty.AuthBasic,
	})
}

func (s *Server) AddCustomer(c loyalty.Customer) *loyalty.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = s.newID()
	}
	stored := c
	s.customers[c.ID.String()] = &stored
	return &stored
}

func (s *Server) Customer(id string) (loyalty.Customer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok {
		return loyalty.Customer{}, false
	}
	return *c, true
}

func (s *Server) CustomerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.customers)
}

func (s *Server) AddOption(opt loyalty.RedemptionOption) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if opt.ID == "" {
		opt.ID = s.newID()
	}
	s.options = append(s.options, opt)
}

// Fail makes every call to route answer with status until cleared with status 0.
func (s *Server) Fail(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status == 0 {
		delete(s.failures, route)
		return
	}
	s.failures[route] = status
}

func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

func (s *Server) Events() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.events...)
}

func (s *Server) Redemptions() []Redemption {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Redemption(nil), s.redemptions...)
}

func (s *Server) newID() loyalty.RemoteID {
	s.nextID++
	return loyalty.RemoteID(strconv.Itoa(s.nextID))
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, secret, ok := r.BasicAuth()
		if !ok {
			if token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found {
				key, secret, ok = token, s.APISecret, true
			}
		}
		if !ok || key != s.APIKey || secret != s.APISecret {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) track(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[route]++
		status := s.failures[route]
		s.mu.Unlock()

		if status != 0 {
			writeError(w, status, "injected failure")
			return
		}
		next(w, r)
	}
}

func (s *Server) sendEvent(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	_, hasRecord := body["customer"]
	_, hasID := body["customer_id"]
	if hasRecord == hasID {
		writeError(w, http.StatusUnprocessableEntity, "exactly one of customer and customer_id is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, body)

	var customer *loyalty.Customer
	if hasID {
		customer = s.customers[fmt.Sprint(body["customer_id"])]
	} else if rec, ok := body["customer"].(map[string]any); ok {
		email, _ := rec["email"].(string)
		customer = s.findByEmail(email)
		if customer == nil {
			customer = &loyalty.Customer{ID: s.newID(), Email: email}
			customer.FirstName, _ = rec["first_name"].(string)
			customer.LastName, _ = rec["last_name"].(string)
			customer.ExternalID, _ = rec["external_id"].(string)
			s.customers[customer.ID.String()] = customer
		}
	}

	resp := map[string]any{
		"id":         s.newID(),
		"event_type": body["event_type"],
	}
	if customer != nil {
		resp["customer"] = customer
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) getCustomer(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[identifier]
	if !ok {
		c = s.findByEmail(identifier)
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "customer not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) createCustomer(w http.ResponseWriter, r *http.Request) {
	var fields loyalty.CustomerFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if fields.Email != "" && s.findByEmail(fields.Email) != nil {
		writeError(w, http.StatusConflict, "customer already exists")
		return
	}

	c := &loyalty.Customer{
		ID:         s.newID(),
		ExternalID: fields.ExternalID,
		Email:      fields.Email,
		FirstName:  fields.FirstName,
		LastName:   fields.LastName,
	}
	s.customers[c.ID.String()] = c
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) listOptions(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")

	s.mu.Lock()
	defer s.mu.Unlock()

	options := s.options
	if customerID != "" {
		c, ok := s.customers[customerID]
		if !ok {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		options = nil
		for _, opt := range s.options {
			if opt.PointsExchange.PointsAmount <= c.PointsBalance {
				options = append(options, opt)
			}
		}
	}
	if options == nil {
		options = []loyalty.RedemptionOption{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"_contents": options})
}

func (s *Server) redeem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		PointsAmount       int64  `json:"points_amount"`
		RedemptionOptionID string `json:"redemption_option_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok {
		writeError(w, http.StatusNotFound, "customer not found")
		return
	}
	if int64(c.PointsBalance) < body.PointsAmount {
		writeError(w, http.StatusUnprocessableEntity, "insufficient points")
		return
	}

	c.PointsBalance -= loyalty.Points(body.PointsAmount)
	s.redemptions = append(s.redemptions, Redemption{
		CustomerID: id,
		Points:     body.PointsAmount,
		OptionID:   body.RedemptionOptionID,
	})

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":                   s.newID(),
		"customer_id":          id,
		"redemption_option_id": body.RedemptionOptionID,
		"points_change":        -body.PointsAmount,
		"points_balance":       c.PointsBalance,
	})
}

func (s *Server) findByEmail(email string) *loyalty.Customer {
	if email == "" {
		return nil
	}
	for _, c := range s.customers {
		if strings.EqualFold(c.Email, email) {
			return c
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
