// Package backend is the REST client for the platform API. It only
// consumes endpoints; all live state flows in over the realtime channels.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"signage-console/entities"
)

type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "backend").Logger(),
	}
}

// ListDevices fetches the full device registry.
func (c *Client) ListDevices(ctx context.Context) ([]entities.Device, error) {
	var out []entities.Device
	err := c.do(ctx, http.MethodGet, "/hardware/dispositivos", nil, &out)
	return out, err
}

// GetDevice fetches one device record.
func (c *Client) GetDevice(ctx context.Context, id string) (entities.Device, error) {
	var out entities.Device
	err := c.do(ctx, http.MethodGet, "/hardware/dispositivos/"+url.PathEscape(id), nil, &out)
	return out, err
}

// CreateDevice registers a device.
func (c *Client) CreateDevice(ctx context.Context, d entities.Device) (entities.Device, error) {
	var out entities.Device
	err := c.do(ctx, http.MethodPost, "/hardware/dispositivos", d, &out)
	return out, err
}

// UpdateDevice replaces a device record.
func (c *Client) UpdateDevice(ctx context.Context, d entities.Device) (entities.Device, error) {
	var out entities.Device
	err := c.do(ctx, http.MethodPut, "/hardware/dispositivos/"+url.PathEscape(d.ID), d, &out)
	return out, err
}

// DeleteDevice removes a device registration.
func (c *Client) DeleteDevice(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/hardware/dispositivos/"+url.PathEscape(id), nil, nil)
}

// DeviceStats fetches playback/uptime statistics for a device.
func (c *Client) DeviceStats(ctx context.Context, id string) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.do(ctx, http.MethodGet, "/hardware/dispositivos/"+url.PathEscape(id)+"/estadisticas", nil, &out)
	return out, err
}

// TestDevice runs the backend's connectivity test against a device.
func (c *Client) TestDevice(ctx context.Context, id string) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.do(ctx, http.MethodGet, "/hardware/dispositivos/"+url.PathEscape(id)+"/test", nil, &out)
	return out, err
}

// SyncDevice asks the backend to push current content to a device.
func (c *Client) SyncDevice(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/hardware/dispositivos/"+url.PathEscape(id)+"/sincronizar", nil, nil)
}

type commandBody struct {
	Kind   entities.CommandKind   `json:"tipo"`
	Params map[string]interface{} `json:"parametros"`
}

// DispatchCommand issues a control command to a device and returns the
// resolved command record.
func (c *Client) DispatchCommand(ctx context.Context, deviceID string, kind entities.CommandKind, params map[string]interface{}) (entities.Command, error) {
	if params == nil {
		params = map[string]interface{}{}
	}
	var out entities.Command
	err := c.do(ctx, http.MethodPost,
		"/hardware/dispositivos/"+url.PathEscape(deviceID)+"/comando",
		commandBody{Kind: kind, Params: params}, &out)
	return out, err
}

// MessageHistory fetches one page of persisted messages for a conversation.
func (c *Client) MessageHistory(ctx context.Context, chatID string, page, size int) ([]entities.ChatMessage, error) {
	q := url.Values{
		"chatId": {chatID},
		"page":   {strconv.Itoa(page)},
		"size":   {strconv.Itoa(size)},
	}
	var out []entities.ChatMessage
	err := c.do(ctx, http.MethodGet, "/mensajes?"+q.Encode(), nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn().Str("method", method).Str("path", path).
			Int("status", resp.StatusCode).Msg("backend request failed")
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, snippet)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
