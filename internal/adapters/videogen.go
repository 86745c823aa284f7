package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
)

// HTTPVideoGeneration implements ports.VideoGenerationPort against a
// generic REST video-generation provider: submit/poll/download, each
// a single JSON or binary HTTP round trip. No third-party SDK is named
// for this provider anywhere in the corpus, so the client is a thin
// net/http wrapper rather than a vendor-specific dependency.
type HTTPVideoGeneration struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPVideoGeneration builds a client against baseURL, authenticating
// with apiKey via a bearer Authorization header.
func NewHTTPVideoGeneration(baseURL, apiKey string) *HTTPVideoGeneration {
	return &HTTPVideoGeneration{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type submitJobRequest struct {
	IdempotentKey string `json:"idempotent_key"`
	Prompt        string `json:"prompt"`
}

type submitJobResponse struct {
	JobKey string `json:"job_key"`
}

// SubmitJob posts prompt under idempotentKey and returns the provider's
// job key.
func (c *HTTPVideoGeneration) SubmitJob(ctx context.Context, idempotentKey string, prompt string) (string, error) {
	body, err := json.Marshal(submitJobRequest{IdempotentKey: idempotentKey, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("encoding submit request: %w", err)
	}

	var resp submitJobResponse
	if err := c.doJSON(ctx, http.MethodPost, "/jobs", body, &resp); err != nil {
		return "", err
	}
	return resp.JobKey, nil
}

type pollJobResponse struct {
	Status       string `json:"status"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// PollJob fetches the current status of jobKey.
func (c *HTTPVideoGeneration) PollJob(ctx context.Context, jobKey string) (models.SideGenStatus, string, string, error) {
	var resp pollJobResponse
	if err := c.doJSON(ctx, http.MethodGet, "/jobs/"+jobKey, nil, &resp); err != nil {
		return "", "", "", err
	}
	return models.SideGenStatus(resp.Status), resp.ErrorCode, resp.ErrorMessage, nil
}

// DownloadClip streams the completed clip for jobKey to dest.
func (c *HTTPVideoGeneration) DownloadClip(ctx context.Context, jobKey string, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+jobKey+"/clip", nil)
	if err != nil {
		return fmt.Errorf("building download request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading clip: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading clip: unexpected status %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating destination file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("writing clip: %w", err)
	}
	return nil
}

func (c *HTTPVideoGeneration) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *HTTPVideoGeneration) doJSON(ctx context.Context, method, path string, body []byte, out any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = strings.NewReader(string(body))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("request to %s failed with status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
