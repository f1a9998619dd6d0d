package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	attemptTimeout = 60 * time.Second
	maxErrBody     = 200
)

// userAgents is a fixed pool of identity strings; one is chosen
// independently at random for every request.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (Version/17.4 Safari/605.1.15)",
}

// Client is a minimal rewards API client with bounded retries.
type Client struct {
	BaseURL    string
	Origin     string
	Referer    string
	Retries    int
	RetryDelay time.Duration
	HTTPClient *http.Client
	Log        *zap.Logger
}

// New creates a client with sane defaults.
func New(baseURL string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		BaseURL:    baseURL,
		Retries:    3,
		RetryDelay: 1200 * time.Millisecond,
		HTTPClient: &http.Client{Timeout: attemptTimeout},
		Log:        log,
	}
}

// APIError wraps a non-2xx response or an unparseable body. The body is
// truncated for diagnostics.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// ChallengeResponse is the login challenge issued per attempt.
type ChallengeResponse struct {
	Message string `json:"message"`
	Nonce   string `json:"nonce"`
}

// VerifyRequest submits a signed challenge.
type VerifyRequest struct {
	PublicAddress string `json:"publicAddress"`
	PublicKey     string `json:"publicKey"`
	Signature     string `json:"signature"`
	Message       string `json:"message"`
	Nonce         string `json:"nonce"`
	WalletType    string `json:"walletType"`
}

// VerifyResponse carries the session tokens.
type VerifyResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// PointsResponse is the balance read; a missing totalPoints decodes to 0.
type PointsResponse struct {
	TotalPoints int64 `json:"totalPoints"`
}

// AuthMessage requests a login challenge for an address.
func (c *Client) AuthMessage(ctx context.Context, publicAddress, publicKey string) (ChallengeResponse, error) {
	body := map[string]any{
		"publicAddress": publicAddress,
		"publicKey":     publicKey,
	}
	var resp ChallengeResponse
	err := c.do(ctx, http.MethodPost, "auth/message", "", body, &resp)
	return resp, err
}

// AuthVerify exchanges a signed challenge for tokens.
func (c *Client) AuthVerify(ctx context.Context, req VerifyRequest) (VerifyResponse, error) {
	var resp VerifyResponse
	err := c.do(ctx, http.MethodPost, "auth/verify", "", req, &resp)
	return resp, err
}

// Points reads the current balance for a user.
func (c *Client) Points(ctx context.Context, bearer, userID string) (PointsResponse, error) {
	var resp PointsResponse
	endpoint := fmt.Sprintf("user/%s/points", url.PathEscape(userID))
	err := c.do(ctx, http.MethodGet, endpoint, bearer, nil, &resp)
	return resp, err
}

// CompleteQuest performs the daily check-in claim.
func (c *Client) CompleteQuest(ctx context.Context, bearer, userID string) error {
	body := map[string]any{
		"questName": "daily_check",
		"userId":    userID,
	}
	return c.do(ctx, http.MethodPost, "user-quests/complete", bearer, body, nil)
}

// do performs one JSON exchange with bounded retries. A transport failure,
// a status outside 2xx, or an unparseable non-empty body all count as a
// failed attempt; the last failure is surfaced. A successful empty body
// leaves out untouched.
func (c *Client) do(ctx context.Context, method, endpoint, bearer string, body, out any) error {
	retries := c.Retries
	if retries < 1 {
		retries = 1
	}
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		lastErr = c.attempt(ctx, method, endpoint, bearer, body, out)
		if lastErr == nil {
			return nil
		}
		if attempt < retries {
			c.Log.Debug("request failed, retrying",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(c.RetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

func (c *Client) attempt(ctx context.Context, method, endpoint, bearer string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	reqURL := strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.Origin != "" {
		req.Header.Set("Origin", c.Origin)
	}
	if c.Referer != "" {
		req.Header.Set("Referer", c.Referer)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response %s: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: truncate(raw)}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		// Empty success body is a null result, not an error.
		return nil
	}
	if out == nil {
		if !json.Valid(raw) {
			return &APIError{StatusCode: resp.StatusCode, Body: truncate(raw)}
		}
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Body: truncate(raw)}
	}
	return nil
}

func truncate(raw []byte) string {
	s := string(raw)
	if len(s) > maxErrBody {
		return s[:maxErrBody]
	}
	return s
}
