// Package gemini implements the planning adapter on the Gemini REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"video-autopilot/internal/pipeline"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.5-flash"
)

const promptInstruction = `You are an AI agent responsible for generating creative video prompts for a text-to-video generation model.

Custom Instructions: %s

Generate a single, detailed video prompt that:
1. Is engaging and suitable for YouTube
2. Is visually interesting and cinematic
3. Has clear narrative or visual progression
4. Is appropriate for a 30-60 second video
5. Avoids copyright issues or controversial content

Return ONLY the video prompt, nothing else. Make it detailed and descriptive.`

const metadataInstruction = `You are an AI agent creating YouTube metadata for a video.

Video Prompt: %s

Generate appropriate YouTube metadata in the following JSON format:
{
	"title": "An engaging, SEO-friendly title (max 100 characters)",
	"description": "A detailed description with relevant information and keywords",
	"tags": ["tag1", "tag2", "tag3", "tag4", "tag5"]
}

Make the title catchy and click-worthy while being accurate.
Include relevant hashtags and keywords in the description.
Choose 5-10 relevant tags.

Return ONLY valid JSON, nothing else.`

// Client calls the Gemini generateContent endpoint for prompt and metadata
// planning. It implements pipeline.Planner.
type Client struct {
	apiKey       string
	instructions string
	model        string
	baseURL      string
	httpClient   *http.Client
}

// New returns a planning client. An empty API key is allowed here; calls will
// fail with pipeline.ErrConfig so the missing credential surfaces as a stage
// error, not a startup crash.
func New(apiKey, instructions string) *Client {
	return &Client{
		apiKey:       apiKey,
		instructions: instructions,
		model:        defaultModel,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
	}
}

// GeneratePrompt implements pipeline.Planner.
func (c *Client) GeneratePrompt(ctx context.Context) (string, error) {
	text, err := c.generateContent(ctx, fmt.Sprintf(promptInstruction, c.instructions))
	if err != nil {
		return "", err
	}
	prompt := strings.TrimSpace(text)
	if prompt == "" {
		return "", fmt.Errorf("%w: gemini returned an empty prompt", pipeline.ErrProvider)
	}
	return prompt, nil
}

// GenerateMetadata implements pipeline.Planner. Benign content must never
// fail the run: when the model's JSON cannot be parsed, deterministic
// fallback metadata derived from the prompt is returned instead.
func (c *Client) GenerateMetadata(ctx context.Context, prompt string) (pipeline.Metadata, error) {
	text, err := c.generateContent(ctx, fmt.Sprintf(metadataInstruction, prompt))
	if err != nil {
		return pipeline.Metadata{}, err
	}

	var meta pipeline.Metadata
	if err := json.Unmarshal([]byte(stripFences(text)), &meta); err != nil || meta.Title == "" {
		return fallbackMetadata(prompt), nil
	}
	if len(meta.Title) > 100 {
		meta.Title = meta.Title[:97] + "..."
	}
	return meta, nil
}

func fallbackMetadata(prompt string) pipeline.Metadata {
	return pipeline.Metadata{
		Title:       "AI Generated Video",
		Description: "Video generated using AI: " + prompt,
		Tags:        []string{"AI", "Generated", "Video"},
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) generateContent(ctx context.Context, text string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: gemini api key not set", pipeline.ErrConfig)
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: text}}}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: gemini request: %v", pipeline.ErrProvider, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read gemini response: %v", pipeline.ErrProvider, err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("%w: parse gemini response: %v", pipeline.ErrProvider, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%w: gemini: %s", pipeline.ErrProvider, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: gemini HTTP %d", pipeline.ErrProvider, resp.StatusCode)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: gemini returned no candidates", pipeline.ErrProvider)
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// stripFences removes a markdown code fence the model sometimes wraps JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
