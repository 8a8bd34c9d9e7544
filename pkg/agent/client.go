// Package agent is a client for the deep-research agent API. Research runs
// asynchronously: CreateInteraction submits a task and returns immediately,
// GetInteraction is polled until the interaction reaches a terminal status.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-crm/internal/resilience"
)

const (
	defaultBaseURL = "https://api.agents.example.com/v1"
	defaultAgent   = "deep-research"
)

// Interaction statuses returned by the API.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Client talks to the research agent API.
type Client interface {
	CreateInteraction(ctx context.Context, req CreateInteractionRequest) (*Interaction, error)
	GetInteraction(ctx context.Context, interactionID string) (*Interaction, error)
}

// CreateInteractionRequest is the request body for POST /interactions.
type CreateInteractionRequest struct {
	Agent          string          `json:"agent"`
	Input          string          `json:"input"`
	Background     bool            `json:"background"`
	ResponseSchema json.RawMessage `json:"response_schema,omitempty"`
}

// Output is one output block of an interaction.
type Output struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Interaction is an agent task. Outputs is populated once the interaction
// completes.
type Interaction struct {
	ID      string   `json:"id"`
	Status  string   `json:"status"`
	Error   string   `json:"error,omitempty"`
	Outputs []Output `json:"outputs,omitempty"`
}

// Terminal reports whether the interaction has finished, successfully or not.
func (i *Interaction) Terminal() bool {
	return i.Status == StatusCompleted || i.Status == StatusFailed || i.Status == StatusCancelled
}

// Text returns the last non-empty output text. Deep research interactions
// emit intermediate reasoning blocks first; the final block carries the
// answer.
func (i *Interaction) Text() string {
	for j := len(i.Outputs) - 1; j >= 0; j-- {
		if i.Outputs[j].Text != "" {
			return i.Outputs[j].Text
		}
	}
	return ""
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithAgent overrides the default agent name.
func WithAgent(agent string) Option {
	return func(c *httpClient) {
		c.agent = agent
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	agent   string
	http    *http.Client
}

// NewClient creates an agent API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		agent:   defaultAgent,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) CreateInteraction(ctx context.Context, req CreateInteractionRequest) (*Interaction, error) {
	if req.Agent == "" {
		req.Agent = c.agent
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "agent: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/interactions", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "agent: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(httpReq)
}

// GetInteraction polls one interaction. Reads are idempotent, so transient
// failures are retried in place; creates are not and never retry.
func (c *httpClient) GetInteraction(ctx context.Context, interactionID string) (*Interaction, error) {
	var result *Interaction
	err := resilience.Do(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/interactions/"+interactionID, nil)
		if err != nil {
			return eris.Wrap(err, "agent: create request")
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		result, err = c.do(httpReq)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *httpClient) do(req *http.Request) (*Interaction, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "agent: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "agent: read response")
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		err := eris.Errorf("agent: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var result Interaction
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "agent: unmarshal response")
	}

	return &result, nil
}
