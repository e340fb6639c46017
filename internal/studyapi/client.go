// Package studyapi is the HTTP client for the study-session backend.
package studyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/alexanderramin/studyclock/internal/config"
	"github.com/alexanderramin/studyclock/internal/contract"
	"github.com/alexanderramin/studyclock/internal/domain"
)

const (
	sessionsPath = "/study-sessions"
	statsPath    = "/study-sessions/stats"
	totalPath    = "/study-sessions/total"
	healthPath   = "/healthz"

	maxBodyBytes  = 1 << 20
	maxErrorBody  = 200
	probeTimeout  = 2 * time.Second
	dialerTimeout = 5 * time.Second
)

// Client talks to the study-session backend.
type Client interface {
	// CreateSession submits one finalized record. Retryable failures are
	// retried up to the configured limit within ctx.
	CreateSession(ctx context.Context, s domain.StudySession) (*contract.CreateSessionResponse, error)

	// Stats returns study totals for the current day, week, month and year.
	Stats(ctx context.Context) (*contract.StatsResponse, error)

	// RecentSessions returns the most recently created records.
	RecentSessions(ctx context.Context) ([]domain.StudySession, error)

	// Total returns the sum of all recorded seconds.
	Total(ctx context.Context) (int64, error)

	// Available checks whether the backend answers its health probe.
	Available(ctx context.Context) bool
}

type httpClient struct {
	cfg      config.APIConfig
	http     *http.Client
	observer Observer
}

// NewClient creates a Client for cfg.Endpoint.
func NewClient(cfg config.APIConfig, observer Observer) Client {
	if observer == nil {
		observer = NoopObserver{}
	}
	return &httpClient{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: dialerTimeout,
				}).DialContext,
			},
		},
		observer: observer,
	}
}

func (c *httpClient) CreateSession(ctx context.Context, s domain.StudySession) (*contract.CreateSessionResponse, error) {
	var out contract.CreateSessionResponse
	if err := c.call(ctx, http.MethodPost, sessionsPath, contract.NewCreateSessionRequest(s), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Stats(ctx context.Context) (*contract.StatsResponse, error) {
	var out contract.StatsResponse
	if err := c.call(ctx, http.MethodGet, statsPath, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) RecentSessions(ctx context.Context) ([]domain.StudySession, error) {
	var views []contract.SessionView
	if err := c.call(ctx, http.MethodGet, sessionsPath, nil, &views); err != nil {
		return nil, err
	}
	sessions := make([]domain.StudySession, 0, len(views))
	for _, v := range views {
		s, err := v.ToDomain()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func (c *httpClient) Total(ctx context.Context) (int64, error) {
	var out contract.TotalResponse
	if err := c.call(ctx, http.MethodGet, totalPath, nil, &out); err != nil {
		return 0, err
	}
	return out.TotalSeconds, nil
}

func (c *httpClient) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+healthPath, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// call runs one logical request with bounded retries and linear backoff.
// Only retryable errors are retried, and never past ctx.
func (c *httpClient) call(ctx context.Context, method, path string, body, out any) error {
	start := time.Now()

	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
	}

	attempts := 1 + max(c.cfg.MaxRetries, 0)
	var (
		lastErr error
		status  int
		made    int
	)
	for i := 0; i < attempts; i++ {
		made++
		status, lastErr = c.attempt(ctx, method, path, data, out)
		if lastErr == nil || !Retryable(lastErr) || ctx.Err() != nil {
			break
		}
		if i < attempts-1 {
			if err := sleep(ctx, c.cfg.RetryBackoff*time.Duration(i+1)); err != nil {
				break
			}
		}
	}

	if lastErr != nil && ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			lastErr = fmt.Errorf("%w: %s %s", ErrTimeout, method, path)
		} else {
			lastErr = ctx.Err()
		}
	}

	c.observer.OnCallComplete(CallEvent{
		Method:    method,
		Path:      path,
		Status:    status,
		Attempts:  made,
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   lastErr == nil,
		ErrorCode: errorCode(lastErr),
	})
	return lastErr
}

func (c *httpClient) attempt(ctx context.Context, method, path string, data []byte, out any) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
	defer cancel()

	var reader io.Reader
	if data != nil {
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.Endpoint+path, reader)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, transportError(ctx, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, transportError(ctx, method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &StatusError{Status: resp.StatusCode, Body: truncate(string(respBody))}
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
	}
	return resp.StatusCode, nil
}

func transportError(ctx context.Context, method, path string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s %s", ErrTimeout, method, path)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
