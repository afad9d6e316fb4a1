// Package upstream is the HTTP client for the safety-event collection
// service: the three alert collections, their resolve/read mutation
// endpoints, and the service health probe.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/safeops/alertfeed/pkg/logger"
)

// Client talks to the collection service.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        logger.Logger
}

// NewClient creates a collection-service client. The token is attached as a
// bearer credential on every request.
func NewClient(baseURL, token string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// FetchMessages retrieves all direct messages.
func (c *Client) FetchMessages(ctx context.Context) ([]MessageRecord, error) {
	var resp messagesResponse
	if err := c.get(ctx, "/api/v1/messages", &resp); err != nil {
		return nil, errors.Wrap(err, "failed to fetch messages")
	}
	c.log.Debug("Fetched messages", "count", len(resp.Messages))
	return resp.Messages, nil
}

// FetchSOS retrieves all SOS records.
func (c *Client) FetchSOS(ctx context.Context) ([]SOSRecord, error) {
	var resp sosResponse
	if err := c.get(ctx, "/api/v1/sos", &resp); err != nil {
		return nil, errors.Wrap(err, "failed to fetch SOS records")
	}
	c.log.Debug("Fetched SOS records", "count", len(resp.Records))
	return resp.Records, nil
}

// FetchIncidents retrieves all incident reports.
func (c *Client) FetchIncidents(ctx context.Context) ([]IncidentRecord, error) {
	var resp incidentsResponse
	if err := c.get(ctx, "/api/v1/incidents", &resp); err != nil {
		return nil, errors.Wrap(err, "failed to fetch incidents")
	}
	c.log.Debug("Fetched incidents", "count", len(resp.Incidents))
	return resp.Incidents, nil
}

// MarkMessageRead marks one message as read.
func (c *Client) MarkMessageRead(ctx context.Context, id string) error {
	path := fmt.Sprintf("/api/v1/messages/%s/read", url.PathEscape(id))
	return errors.Wrap(c.post(ctx, path), "failed to mark message read")
}

// ResolveSOS resolves one SOS record.
func (c *Client) ResolveSOS(ctx context.Context, id string) error {
	path := fmt.Sprintf("/api/v1/sos/%s/resolve", url.PathEscape(id))
	return errors.Wrap(c.post(ctx, path), "failed to resolve SOS record")
}

// ResolveIncident resolves one incident report.
func (c *Client) ResolveIncident(ctx context.Context, id string) error {
	path := fmt.Sprintf("/api/v1/incidents/%s/resolve", url.PathEscape(id))
	return errors.Wrap(c.post(ctx, path), "failed to resolve incident")
}

// Health probes the collection service health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return errors.Wrap(err, "failed to create health request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "health request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("upstream unhealthy (HTTP %d)", resp.StatusCode)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

func (c *Client) setHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")
}

// checkStatus maps HTTP error responses to errors, decoding the API error
// payload when one is present.
func checkStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusUnauthorized:
		return errors.New("authentication error (HTTP 401): token invalid or expired")
	case http.StatusNotFound:
		var apiErr APIError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Detail.Code != "" {
			return errors.Errorf("not found (HTTP 404): %s", apiErr.Error())
		}
		return errors.New("not found (HTTP 404)")
	case http.StatusTooManyRequests:
		return errors.New("rate limit exceeded (HTTP 429): too many requests")
	case http.StatusInternalServerError:
		var apiErr APIError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Detail.Code != "" {
			return errors.Errorf("server error (HTTP 500): %s", apiErr.Error())
		}
		return errors.New("server error (HTTP 500): collection service internal error")
	default:
		return errors.Errorf("unexpected HTTP status %d", resp.StatusCode)
	}
}
