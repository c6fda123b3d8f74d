/**
 * @description
 * This package provides a client for the identity service, which owns student
 * records. The ledger stores only student ids; this client resolves them to
 * display attributes (name, class label, identity number) when an aggregate
 * or exporter row is read.
 */
package identityclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sekolahpay/ledger-service/internal/domain"
)

// Client is a client for the identity service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new identity service client.
func NewClient(baseURL string, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type lookupRequest struct {
	StudentIDs []uuid.UUID `json:"student_ids"`
}

type lookupResponse struct {
	Students []domain.StudentProfile `json:"students"`
}

// GetStudent resolves a single student id.
func (c *Client) GetStudent(ctx context.Context, studentID uuid.UUID) (*domain.StudentProfile, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("identity service base url is empty")
	}

	url := fmt.Sprintf("%s/internal/students/%s", c.baseURL, studentID)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request to identity service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("identity service returned error status %d", resp.StatusCode)
	}

	var profile domain.StudentProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &profile, nil
}

// LookupStudents resolves a batch of student ids in one call, keyed by id.
// Ids the identity service does not know are simply absent from the result.
func (c *Client) LookupStudents(ctx context.Context, studentIDs []uuid.UUID) (map[uuid.UUID]domain.StudentProfile, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("identity service base url is empty")
	}
	if len(studentIDs) == 0 {
		return map[uuid.UUID]domain.StudentProfile{}, nil
	}

	url := fmt.Sprintf("%s/internal/students/lookup", c.baseURL)

	body, err := json.Marshal(lookupRequest{StudentIDs: studentIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request to identity service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("identity service returned error status %d", resp.StatusCode)
	}

	var decoded lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	profiles := make(map[uuid.UUID]domain.StudentProfile, len(decoded.Students))
	for _, profile := range decoded.Students {
		profiles[profile.ID] = profile
	}
	return profiles, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(c.apiKey) != "" {
		req.Header.Set("X-Internal-API-Key", strings.TrimSpace(c.apiKey))
	}
}
