// Package simulator drives a fake field device against the ingestion API.
package simulator

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/technohub6911/smartcropx/internal/data"
)

// Ack is the server's answer to a report.
type Ack struct {
	Success           bool   `json:"success"`
	IrrigationCommand bool   `json:"irrigationCommand"`
	AutoIrrigation    bool   `json:"autoIrrigation"`
	Message           string `json:"message"`
	Error             string `json:"error"`
}

type Client struct {
	http *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetHeader("Content-Type", "application/json")
	return &Client{http: c}
}

// Report posts one reading and returns the actuation answer.
func (c *Client) Report(ctx context.Context, r data.Reading) (*Ack, error) {
	var ack Ack
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(r).
		SetResult(&ack).
		SetError(&ack).
		Post("/soil-data")
	if err != nil {
		return nil, fmt.Errorf("post soil data: %w", err)
	}
	if resp.IsError() {
		return &ack, fmt.Errorf("post soil data: %s: %s", resp.Status(), ack.Error)
	}
	return &ack, nil
}

// EnableAuto stores auto-irrigation settings for the user.
func (c *Client) EnableAuto(ctx context.Context, userID string, threshold float64) error {
	var out struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"userId": userID, "enabled": true, "threshold": threshold}).
		SetResult(&out).
		SetError(&out).
		Post("/auto-irrigation")
	if err != nil {
		return fmt.Errorf("post settings: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("post settings: %s: %s", resp.Status(), out.Error)
	}
	return nil
}
