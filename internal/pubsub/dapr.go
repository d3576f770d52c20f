package pubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// DaprPublisher publishes through a Dapr sidecar's HTTP publish API.
type DaprPublisher struct {
	baseURL    string
	pubsubName string
	client     *http.Client
	logger     *slog.Logger
}

// NewDaprPublisher targets http://host:port/v1.0/publish/{pubsubName}/{topic}.
// A nil client uses http.DefaultClient; deadlines come from the caller's context.
func NewDaprPublisher(host string, port int, pubsubName string, client *http.Client, logger *slog.Logger) *DaprPublisher {
	if client == nil {
		client = http.DefaultClient
	}
	return &DaprPublisher{
		baseURL:    fmt.Sprintf("http://%s:%d", host, port),
		pubsubName: pubsubName,
		client:     client,
		logger:     logger.With("component", "dapr_publisher"),
	}
}

// Publish posts payload as JSON. Only a 2xx response counts as acknowledged.
func (p *DaprPublisher) Publish(ctx context.Context, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", topic, err)
	}

	endpoint := p.baseURL + "/v1.0/publish/" + url.PathEscape(p.pubsubName) + "/" + url.PathEscape(topic)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		p.logger.Warn("sidecar rejected publish",
			"topic", topic,
			"status_code", resp.StatusCode,
			"response", string(detail))
		return fmt.Errorf("publish to %s: %w: status %d", topic, ErrNotAcknowledged, resp.StatusCode)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	p.logger.Debug("published message", "topic", topic, "status_code", resp.StatusCode)
	return nil
}
