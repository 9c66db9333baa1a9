// Package homeassistant adapts the Home Assistant REST API to the sensor and
// actuator interfaces the safety components consume. Installations without a
// configured runtime use the Null adapter instead.
package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"home-safety-monitor/internal/logger"
)

// maxErrorBodySize bounds how much of an error response body is read for
// diagnostics.
const maxErrorBodySize = 4 << 10

var (
	// ErrUnavailable is returned when an entity exists but currently reports
	// no usable value ("unknown" or "unavailable").
	ErrUnavailable = errors.New("entity value unavailable")
	// errNoRuntime is returned by the Null adapter for every read.
	errNoRuntime = errors.New("no host runtime configured")
)

// Client talks to one Home Assistant instance.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// entityState is the wire form of a Home Assistant entity state.
type entityState struct {
	EntityID   string            `json:"entity_id,omitempty"`
	State      string            `json:"state"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// NewClient creates a client for the given API root and long-lived token.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// ReadFloat fetches the entity's current state and parses it as a float.
func (c *Client) ReadFloat(ctx context.Context, entity string) (float64, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.stateURL(entity), nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	c.authorize(request)

	response, err := c.client.Do(request)
	if err != nil {
		return 0, fmt.Errorf("fetch state of %s: %w", entity, err)
	}
	defer closeBody(ctx, response.Body)

	if response.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch state of %s: %s", entity, response.Status)
	}

	var state entityState
	if err = json.NewDecoder(response.Body).Decode(&state); err != nil {
		return 0, fmt.Errorf("decode state of %s: %w", entity, err)
	}

	if state.State == "unknown" || state.State == "unavailable" {
		return 0, fmt.Errorf("%w: %s", ErrUnavailable, entity)
	}

	value, err := strconv.ParseFloat(state.State, 64)
	if err != nil {
		return 0, fmt.Errorf("parse state of %s: %w", entity, err)
	}

	return value, nil
}

// WriteState sets the entity's state and attributes.
func (c *Client) WriteState(ctx context.Context, entity, state string, attributes map[string]string) error {
	payload, err := json.Marshal(entityState{State: state, Attributes: attributes})
	if err != nil {
		return fmt.Errorf("encode state of %s: %w", entity, err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.stateURL(entity), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	c.authorize(request)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.client.Do(request)
	if err != nil {
		return fmt.Errorf("write state of %s: %w", entity, err)
	}
	defer closeBody(ctx, response.Body)

	if response.StatusCode != http.StatusOK && response.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBodySize))

		return fmt.Errorf("write state of %s: %s: %s",
			entity, response.Status, strings.TrimSpace(string(body)))
	}

	return nil
}

func (c *Client) stateURL(entity string) string {
	return c.baseURL + "/api/states/" + url.PathEscape(entity)
}

func (c *Client) authorize(request *http.Request) {
	request.Header.Set("Authorization", "Bearer "+c.token)
}

func closeBody(ctx context.Context, body io.ReadCloser) {
	if err := body.Close(); err != nil {
		logger.Debugf(ctx, "closing response body: %v", err)
	}
}

// Null is the runtime adapter used when no Home Assistant connection is
// configured. Reads fail so mechanisms stay NOT_TESTED; writes are dropped
// with a log line.
type Null struct{}

// ReadFloat always fails; there is no runtime to read from.
func (Null) ReadFloat(_ context.Context, entity string) (float64, error) {
	return 0, fmt.Errorf("%w: cannot read %s", errNoRuntime, entity)
}

// WriteState drops the command.
func (Null) WriteState(ctx context.Context, entity, state string, _ map[string]string) error {
	logger.DebugKV(ctx, "Dropping actuator command, no host runtime configured",
		"entity", entity, "state", state)

	return nil
}
