package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zrfleet/depotsim/internal/parser"
	"github.com/zrfleet/depotsim/pkg/core"
)

const defaultTimeout = 10 * time.Second

// Client talks to the dispatch authority over HTTP/JSON.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	parser     *parser.Service
}

// NewClient creates a new authority client. A non-positive timeout falls
// back to 10s.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		parser:     parser.NewService(nil),
	}
}

// Healthcheck checks if the dispatch authority is reachable.
func (c *Client) Healthcheck() error {
	resp, err := c.httpClient.Get(c.baseURL + "/healthcheck")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// post sends a JSON body and decodes the JSON response into out (skipped
// when out is nil).
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// notifyFullResponse is the authority's reply to a full notice; route_data
// is optional.
type notifyFullResponse struct {
	RouteData json.RawMessage `json:"route_data"`
}

// NotifyVehicleFull reports a full vehicle and returns the inline route
// assignment when the authority includes one.
func (c *Client) NotifyVehicleFull(ctx context.Context, notice core.VehicleFullNotice) (*core.RouteDescriptor, error) {
	var resp notifyFullResponse
	if err := c.post(ctx, "/api/v1/vehicles/full", notice, &resp); err != nil {
		return nil, err
	}
	if len(resp.RouteData) == 0 || string(resp.RouteData) == "null" {
		return nil, nil
	}
	route, err := c.parser.ParseRouteData(resp.RouteData)
	if err != nil {
		return nil, fmt.Errorf("invalid inline route_data: %w", err)
	}
	return route, nil
}

// RequestRouteAssignment pulls a route assignment for a vehicle.
func (c *Client) RequestRouteAssignment(ctx context.Context, req core.RouteRequest) (*core.RouteDescriptor, error) {
	var resp struct {
		RouteData json.RawMessage `json:"route_data"`
	}
	if err := c.post(ctx, "/api/v1/routes/assign", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.RouteData) == 0 || string(resp.RouteData) == "null" {
		return nil, fmt.Errorf("authority returned no route_data")
	}
	route, err := c.parser.ParseRouteData(resp.RouteData)
	if err != nil {
		return nil, fmt.Errorf("invalid route_data: %w", err)
	}
	return route, nil
}

// UpdateVehicleState pushes state telemetry.
func (c *Client) UpdateVehicleState(ctx context.Context, update core.StateUpdate) error {
	return c.post(ctx, "/api/v1/vehicles/state", update, nil)
}

// NotifyJourneyCompleted pushes a completed-journey report.
func (c *Client) NotifyJourneyCompleted(ctx context.Context, report core.JourneyReport) error {
	return c.post(ctx, "/api/v1/journeys/completed", report, nil)
}

// AvailableRoutes lists the authority's assignable routes.
func (c *Client) AvailableRoutes(ctx context.Context) ([]core.RouteDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/routes", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("routes request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("routes returned status %d", resp.StatusCode)
	}

	var listing struct {
		Routes []json.RawMessage `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode routes: %w", err)
	}

	routes := make([]core.RouteDescriptor, 0, len(listing.Routes))
	for i, raw := range listing.Routes {
		route, err := c.parser.ParseRouteData(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid route_data at index %d: %w", i, err)
		}
		routes = append(routes, *route)
	}
	return routes, nil
}
