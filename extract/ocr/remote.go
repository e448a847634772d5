package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultRemoteTimeout = 2 * time.Minute

// RemoteEngine recognizes page text through a hosted OCR API that accepts
// base64-encoded page images and returns recognized text, such as Mistral's
// OCR endpoint or a self-hosted recognition service.
type RemoteEngine struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

var _ Engine = (*RemoteEngine)(nil)

type remoteRequest struct {
	Page   int    `json:"page"`
	Image  string `json:"image"`
	Format string `json:"format"`
}

type remoteResponse struct {
	Text string `json:"text"`
}

// NewRemoteEngine creates an engine that calls a remote OCR service.
// The apiKey may be empty for services that don't require authentication.
func NewRemoteEngine(endpoint, apiKey string) *RemoteEngine {
	return &RemoteEngine{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: defaultRemoteTimeout},
		logger:   slog.Default().With("component", "remote-ocr"),
	}
}

// RecognizePage sends one page image to the remote service and returns the
// recognized text.
func (e *RemoteEngine) RecognizePage(ctx context.Context, img PageImage) (string, error) {
	body, err := json.Marshal(remoteRequest{
		Page:   img.Page,
		Image:  base64.StdEncoding.EncodeToString(img.Data),
		Format: img.Format,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		e.logger.Error("remote ocr request failed", "page", img.Page, "err", err)
		return "", fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		e.logger.Error("remote ocr returned error status",
			"page", img.Page, "status", resp.StatusCode, "body", string(payload))
		return "", fmt.Errorf("%w: page %d: status %d", ErrRecognitionFailed, img.Page, resp.StatusCode)
	}

	var parsed remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: page %d: %v", ErrRecognitionFailed, img.Page, err)
	}

	return strings.TrimSpace(parsed.Text), nil
}
