// ABOUTME: This file implements Engine against the headless renderer sidecar.
// ABOUTME: Sessions map to renderer contexts managed over its REST API.
package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"news-harvester/config"
)

const errorBodyLimit = 4 << 10

type contextRequest struct {
	Proxy string `json:"proxy,omitempty"`
}

type contextResponse struct {
	ID string `json:"id"`
}

type navigateRequest struct {
	URL       string `json:"url"`
	TimeoutMS int64  `json:"timeout_ms,omitempty"`
}

type navigateResponse struct {
	HTML string `json:"html"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// remoteEngine talks to the renderer sidecar. Each NewContext call maps
// to a renderer context that keeps its proxy binding until closed.
type remoteEngine struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewRemoteEngine creates an Engine backed by the renderer at
// cfg.RendererURL.
func NewRemoteEngine(cfg *config.BrowserConfig, logger *slog.Logger) Engine {
	return &remoteEngine{
		baseURL: strings.TrimRight(cfg.RendererURL, "/"),
		client: &http.Client{
			Timeout: cfg.NavTimeout + 30*time.Second,
		},
		logger: logger,
	}
}

func (e *remoteEngine) NewContext(ctx context.Context, proxy *url.URL) (EngineContext, error) {
	payload := contextRequest{}
	if proxy != nil {
		payload.Proxy = proxy.String()
	}

	var created contextResponse
	if err := e.post(ctx, "/contexts", payload, &created); err != nil {
		return nil, fmt.Errorf("create renderer context: %w", err)
	}
	if created.ID == "" {
		return nil, fmt.Errorf("renderer returned no context id")
	}

	return &remoteContext{engine: e, id: created.ID}, nil
}

func (e *remoteEngine) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return e.apiError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (e *remoteEngine) apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))

	var er errorResponse
	if json.Unmarshal(body, &er) == nil && er.Error != "" {
		return fmt.Errorf("renderer returned %d: %s", resp.StatusCode, er.Error)
	}
	return fmt.Errorf("renderer returned %d", resp.StatusCode)
}

type remoteContext struct {
	engine *remoteEngine
	id     string
}

func (c *remoteContext) Navigate(ctx context.Context, pageURL string) (string, error) {
	payload := navigateRequest{URL: pageURL}
	if deadline, ok := ctx.Deadline(); ok {
		payload.TimeoutMS = time.Until(deadline).Milliseconds()
	}

	var rendered navigateResponse
	if err := c.engine.post(ctx, "/contexts/"+c.id+"/navigate", payload, &rendered); err != nil {
		return "", fmt.Errorf("navigate %s: %w", pageURL, err)
	}
	if rendered.HTML == "" {
		return "", fmt.Errorf("navigate %s: renderer returned empty document", pageURL)
	}
	return rendered.HTML, nil
}

func (c *remoteContext) Close(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.engine.baseURL+"/contexts/"+c.id, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.engine.client.Do(req)
	if err != nil {
		return fmt.Errorf("close renderer context: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.engine.apiError(resp)
	}
	return nil
}
