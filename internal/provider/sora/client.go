// Package sora implements the video generation adapter on OpenAI's video
// jobs API: create a job, poll until it settles, download the MP4.
package sora

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"video-autopilot/internal/pipeline"

	"github.com/google/uuid"
)

const (
	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "sora-2"

	minDurationSec = 5
	maxDurationSec = 60
)

// resolutionSizes maps the configured resolution names to API size strings.
var resolutionSizes = map[string]string{
	"1080p": "1920x1080",
	"720p":  "1280x720",
	"480p":  "854x480",
}

// Client renders videos through the jobs API. It implements
// pipeline.Generator.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	outputDir  string
	httpClient *http.Client

	pollInterval time.Duration
	pollTimeout  time.Duration
}

// New returns a generation client that writes downloaded videos to outputDir.
func New(apiKey, outputDir string) *Client {
	return &Client{
		apiKey:       apiKey,
		model:        defaultModel,
		baseURL:      defaultBaseURL,
		outputDir:    outputDir,
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
		pollInterval: 10 * time.Second,
		pollTimeout:  20 * time.Minute,
	}
}

type videoJob struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate implements pipeline.Generator. Duration is clamped to [5,60]
// seconds; unknown resolutions fall back to 1080p.
func (c *Client) Generate(ctx context.Context, prompt string, durationSec int, resolution string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: openai api key not set", pipeline.ErrConfig)
	}

	if durationSec < minDurationSec {
		durationSec = minDurationSec
	}
	if durationSec > maxDurationSec {
		durationSec = maxDurationSec
	}
	size, ok := resolutionSizes[resolution]
	if !ok {
		size = resolutionSizes["1080p"]
	}

	job, err := c.createJob(ctx, prompt, durationSec, size)
	if err != nil {
		return "", err
	}

	job, err = c.waitForJob(ctx, job.ID)
	if err != nil {
		return "", err
	}

	return c.download(ctx, job.ID)
}

func (c *Client) createJob(ctx context.Context, prompt string, durationSec int, size string) (videoJob, error) {
	body, err := json.Marshal(map[string]any{
		"model":   c.model,
		"prompt":  prompt,
		"seconds": durationSec,
		"size":    size,
	})
	if err != nil {
		return videoJob{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/videos", bytes.NewReader(body))
	if err != nil {
		return videoJob{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var job videoJob
	if err := c.doJSON(req, &job); err != nil {
		return videoJob{}, err
	}
	if job.ID == "" {
		return videoJob{}, fmt.Errorf("%w: video job created without an id", pipeline.ErrProvider)
	}
	return job, nil
}

// waitForJob polls the job until it completes, fails, or the poll budget is
// spent. A spent budget is reported as a provider timeout.
func (c *Client) waitForJob(ctx context.Context, jobID string) (videoJob, error) {
	deadline := time.Now().Add(c.pollTimeout)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		job, err := c.getJob(ctx, jobID)
		if err != nil {
			return videoJob{}, err
		}
		switch job.Status {
		case "completed":
			return job, nil
		case "failed", "cancelled":
			msg := job.Status
			if job.Error != nil {
				msg = job.Error.Message
			}
			return videoJob{}, fmt.Errorf("%w: video generation %s: %s", pipeline.ErrProvider, job.Status, msg)
		}

		if time.Now().After(deadline) {
			return videoJob{}, fmt.Errorf("%w: video generation timed out after %s", pipeline.ErrProvider, c.pollTimeout)
		}
		select {
		case <-ctx.Done():
			return videoJob{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) getJob(ctx context.Context, jobID string) (videoJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/videos/"+jobID, nil)
	if err != nil {
		return videoJob{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var job videoJob
	if err := c.doJSON(req, &job); err != nil {
		return videoJob{}, err
	}
	return job, nil
}

// download fetches the finished video and writes it under the output
// directory with a unique name.
func (c *Client) download(ctx context.Context, jobID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/videos/"+jobID+"/content", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: download video: %v", pipeline.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, "download video")
	}

	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(c.outputDir, fmt.Sprintf("generated_%s.mp4", uuid.NewString()[:8]))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create video file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("%w: write video file: %v", pipeline.ErrProvider, err)
	}
	return path, nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", pipeline.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return classifyStatus(resp.StatusCode, req.URL.Path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: parse response from %s: %v", pipeline.ErrProvider, req.URL.Path, err)
	}
	return nil
}

// classifyStatus maps HTTP failures onto the error taxonomy: 429 is a quota
// fault, 401/403 a credential fault, everything else a provider fault.
func classifyStatus(status int, op string) error {
	switch status {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s: HTTP 429", pipeline.ErrQuota, op)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s: HTTP %d", pipeline.ErrConfig, op, status)
	default:
		return fmt.Errorf("%w: %s: HTTP %d", pipeline.ErrProvider, op, status)
	}
}
