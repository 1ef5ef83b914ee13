package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/picklight-core/internal/auth"
)

// ticketTTL is how long a WebSocket ticket is valid.
const ticketTTL = 60 * time.Second

// tokenRequest is the request body for POST /auth/token.
type tokenRequest struct {
	APIKey string `json:"api_key"`
}

// tokenResponse is the response body for POST /auth/token.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// handleToken exchanges the configured API key for a short-lived bearer token.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil {
		writeMessage(w, http.StatusNotFound, "authentication is not enabled")
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	signed, _, err := s.tokens.Exchange(req.APIKey)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidAPIKey) {
			writeMessage(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		s.writeUnexpected(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokens.TTL().Seconds()),
	})
}

// handleWSTicket generates a single-use WebSocket authentication ticket.
// The client uses this ticket to authenticate the WebSocket connection
// without exposing the bearer token in the URL.
func (s *Server) handleWSTicket(w http.ResponseWriter, _ *http.Request) {
	ticket := s.tickets.issue()

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// ticketStore holds pending WebSocket authentication tickets.
// Tickets are single-use and expire after ticketTTL.
type ticketStore struct {
	tickets map[string]time.Time
	mu      sync.Mutex
}

func newTicketStore() *ticketStore {
	return &ticketStore{tickets: make(map[string]time.Time)}
}

// issue creates and stores a new ticket.
func (t *ticketStore) issue() string {
	ticket := generateTicket()

	t.mu.Lock()
	t.tickets[ticket] = time.Now().Add(ticketTTL)
	t.mu.Unlock()

	return ticket
}

// consume checks if a ticket is valid and removes it (single-use).
func (t *ticketStore) consume(ticket string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	expiresAt, ok := t.tickets[ticket]
	if !ok {
		return false
	}
	delete(t.tickets, ticket)

	return time.Now().Before(expiresAt)
}

// clean removes expired tickets from the store.
func (t *ticketStore) clean() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for ticket, expiresAt := range t.tickets {
		if now.After(expiresAt) {
			delete(t.tickets, ticket)
		}
	}
}

// ticketBytes is the number of random bytes used for WebSocket tickets.
const ticketBytes = 32

// generateTicket creates a cryptographically random ticket string.
func generateTicket() string {
	b := make([]byte, ticketBytes)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	return hex.EncodeToString(b)
}

// cleanTicketsLoop removes expired tickets periodically until the context
// is cancelled.
func (s *Server) cleanTicketsLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tickets.clean()
		}
	}
}
