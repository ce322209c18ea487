// Package client is the Go client for the drip API. It owns the session
// token, transparently refreshing it through a circuit breaker when the
// server signals an expired session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// APIError is a coded error response from the service.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Account mirrors the account payload returned by the service.
type Account struct {
	Address     string `json:"address"`
	DisplayName string `json:"displayName"`
	Contact     string `json:"contact,omitempty"`
	TotalEarned string `json:"totalEarned"`
	TotalClaims int64  `json:"totalClaims"`
}

// Challenge is the response of the nonce endpoint.
type Challenge struct {
	Message   string `json:"message"`
	Nonce     string `json:"nonce"`
	Timestamp int64  `json:"timestamp"`
}

// Available is the reward preview.
type Available struct {
	Amount              string `json:"amount"`
	HoursSinceLastClaim int64  `json:"hoursSinceLastClaim"`
	NextEligibleInHours int64  `json:"nextEligibleInHours"`
	CanClaim            bool   `json:"canClaim"`
}

// ClaimReceipt is the response of the claim endpoint.
type ClaimReceipt struct {
	TransactionID string    `json:"transactionId"`
	Amount        string    `json:"amount"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Transaction mirrors a claim transaction payload.
type Transaction struct {
	TransactionID string `json:"transactionId"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
	SettlementRef string `json:"settlementReference,omitempty"`
}

type connectResponse struct {
	SessionToken string  `json:"sessionToken"`
	Account      Account `json:"account"`
}

// Client talks to the drip HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *RefreshBreaker

	mu    sync.RWMutex
	token string
}

// New creates a client for the given base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		breaker: NewRefreshBreaker(),
	}
}

// Token returns the current session token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Nonce fetches a challenge message for the address.
func (c *Client) Nonce(ctx context.Context, address string) (*Challenge, error) {
	var out Challenge
	path := "/auth/nonce?address=" + url.QueryEscape(address)
	if err := c.do(ctx, http.MethodGet, path, nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Connect authenticates with a signed challenge and stores the session
// token for subsequent calls.
func (c *Client) Connect(ctx context.Context, address, message, signature string) (*Account, error) {
	body := map[string]string{
		"address":   address,
		"message":   message,
		"signature": signature,
	}
	var out connectResponse
	if err := c.do(ctx, http.MethodPost, "/auth/connect", body, &out, false); err != nil {
		return nil, err
	}
	c.setToken(out.SessionToken)
	return &out.Account, nil
}

// Disconnect invalidates the current session.
func (c *Client) Disconnect(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/disconnect", nil, nil, true); err != nil {
		return err
	}
	c.setToken("")
	return nil
}

// Available previews the claimable reward.
func (c *Client) Available(ctx context.Context) (*Available, error) {
	var out Available
	if err := c.do(ctx, http.MethodGet, "/rewards/available", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Claim opens a claim transaction for the expected amount.
func (c *Client) Claim(ctx context.Context, expectedAmount string) (*ClaimReceipt, error) {
	body := map[string]string{"expectedAmount": expectedAmount}
	var out ClaimReceipt
	if err := c.do(ctx, http.MethodPost, "/rewards/claim", body, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Confirm settles an opened claim with its settlement reference.
func (c *Client) Confirm(ctx context.Context, transactionID, settlementRef string) (*Transaction, error) {
	body := map[string]string{
		"transactionId":       transactionID,
		"settlementReference": settlementRef,
	}
	var out Transaction
	if err := c.do(ctx, http.MethodPost, "/rewards/confirm", body, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// refresh rotates the session token through the circuit breaker.
func (c *Client) refresh(ctx context.Context) error {
	token, err := c.breaker.Do(ctx, func(ctx context.Context) (string, error) {
		var out connectResponse
		if err := c.doOnce(ctx, http.MethodPost, "/auth/refresh", nil, &out, true); err != nil {
			return "", err
		}
		return out.SessionToken, nil
	})
	if err != nil {
		return err
	}
	c.setToken(token)
	return nil
}

// do performs a request; for authenticated calls an expired-session response
// triggers one breaker-guarded refresh followed by a single retry.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, authed bool) error {
	err := c.doOnce(ctx, method, path, body, out, authed)
	if !authed {
		return err
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized && apiErr.Code == "UNAUTHENTICATED" {
		if rerr := c.refresh(ctx); rerr != nil {
			return rerr
		}
		return c.doOnce(ctx, method, path, body, out, authed)
	}
	return err
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, out interface{}, authed bool) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+c.Token())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if derr := json.NewDecoder(resp.Body).Decode(apiErr); derr != nil {
			apiErr.Code = "UNKNOWN"
			apiErr.Message = resp.Status
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
