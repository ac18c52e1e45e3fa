// Package verify implements the human-verification collaborator consulted
// for guest submissions. Registered users are trusted by their credential;
// guests must pass a challenge before their submission is accepted.
package verify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Verifier answers whether a challenge token proves a human. Implementations
// must be safe for concurrent use.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// AllowAll accepts every submission. Used in development and in tests where
// the challenge widget is not wired up.
type AllowAll struct{}

// Verify always reports success.
func (AllowAll) Verify(context.Context, string, string) (bool, error) { return true, nil }

// DefaultTurnstileEndpoint is Cloudflare's siteverify URL.
const DefaultTurnstileEndpoint = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// Turnstile validates tokens against Cloudflare Turnstile's siteverify API.
type Turnstile struct {
	// Secret is the server-side site secret.
	Secret string
	// Endpoint overrides the verification URL; tests point it at a local
	// server. Empty selects DefaultTurnstileEndpoint.
	Endpoint string
	// Client overrides the HTTP client. Empty selects a client with a short
	// timeout so a slow verifier cannot stall submissions indefinitely.
	Client *http.Client
}

// Verify posts the token to the siteverify endpoint and returns the reported
// outcome. An empty token fails without a network round trip.
func (t *Turnstile) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return false, nil
	}

	endpoint := t.Endpoint
	if endpoint == "" {
		endpoint = DefaultTurnstileEndpoint
	}
	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	form := url.Values{}
	form.Set("secret", t.Secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	var body struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, err
	}
	return body.Success, nil
}
