package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/degaulle/sorashorts/internal/model"
)

const (
	defaultBase    = "http://localhost:3000"
	defaultTimeout = 150 * time.Second
)

// APIError is a non-2xx answer from the backend. Message is the body's
// "error" field when there is one, otherwise a stage-specific default.
type APIError struct {
	StatusCode int
	Message    string
	// FromBody is set when Message was taken from the response body.
	FromBody bool
}

func (e *APIError) Error() string {
	return e.Message
}

func newAPIError(status int, body []byte, fallback string) *APIError {
	msg := errorMessage(body, fallback)
	return &APIError{StatusCode: status, Message: msg, FromBody: msg != fallback}
}

// Client talks to the generation backend. Every call is a single blocking
// HTTP round trip; the user photo travels inside each request body.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Mock       bool
	log        *logrus.Entry
}

func NewClient(baseURL string, timeout time.Duration, mock bool) *Client {
	if baseURL == "" {
		baseURL = defaultBase
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		Mock:       mock,
		log:        logrus.WithField("component", "backend"),
	}
}

func (c *Client) DetectGender(ctx context.Context, photo string) (model.Gender, error) {
	if c.Mock {
		return model.DefaultGender, nil
	}
	var resp struct {
		Gender string `json:"gender"`
	}
	body := map[string]any{"photo": photo}
	if err := c.postJSON(ctx, "/api/detect-gender", body, &resp, "failed to detect gender"); err != nil {
		return "", err
	}
	return model.Gender(resp.Gender), nil
}

// GenerateStoryboard returns the scenes as the backend sent them. A missing
// scene_number is left at zero for the caller to fill in.
func (c *Client) GenerateStoryboard(ctx context.Context, show string, gender model.Gender) ([]model.Scene, error) {
	if c.Mock {
		return mockScenes(show), nil
	}
	body := map[string]any{"show_name": show}
	if gender != "" {
		body["gender"] = gender
	}
	var resp struct {
		Scenes []model.Scene `json:"scenes"`
	}
	if err := c.postJSON(ctx, "/api/generate-storyboard", body, &resp, "failed to generate storyboard"); err != nil {
		return nil, err
	}
	return resp.Scenes, nil
}

// GenerateImage requests one scene image and normalizes the answer to a URL.
func (c *Client) GenerateImage(ctx context.Context, req model.ImageRequest) (string, error) {
	if c.Mock {
		// 1x1 PNG pixel base64
		pixel := "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR4nGNgYAAAAAMAASsJTYQAAAAASUVORK5CYII="
		return "data:image/png;base64," + pixel, nil
	}
	var raw json.RawMessage
	fallback := fmt.Sprintf("failed to generate scene %d", req.SceneNumber)
	if err := c.postJSON(ctx, "/api/generate-image", req, &raw, fallback); err != nil {
		return "", err
	}
	imageURL, err := ExtractImageURL(raw)
	if err != nil {
		c.log.WithField("scene", req.SceneNumber).Debugf("unrecognized image response: %s", truncate(string(raw), 300))
		return "", err
	}
	return imageURL, nil
}

func (c *Client) GenerateScenePrompt(ctx context.Context, show string) (string, error) {
	if c.Mock {
		return fmt.Sprintf("The opening scene of %s, slow dolly in on the protagonist, dramatic lighting.", show), nil
	}
	var resp struct {
		Prompt string `json:"prompt"`
	}
	err := c.postJSON(ctx, "/api/generate-scene-prompt", map[string]any{"show_name": show}, &resp, "")
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		// the body is never shown for this stage
		apiErr.Message = "failed to generate scene prompt"
		apiErr.FromBody = false
	}
	if err != nil {
		return "", err
	}
	return resp.Prompt, nil
}

// GenerateVideo submits the seed image and prompt. The backend either queues
// the job (RequestID set) or answers with the finished video (VideoURL set).
func (c *Client) GenerateVideo(ctx context.Context, imageURL, prompt string) (model.VideoJob, error) {
	if c.Mock {
		return model.VideoJob{RequestID: "mock-request"}, nil
	}
	body := map[string]any{
		"image_url": imageURL,
		"prompt":    prompt,
	}
	var resp struct {
		RequestID string `json:"request_id"`
		Video     *struct {
			URL string `json:"url"`
		} `json:"video"`
	}
	if err := c.postJSON(ctx, "/api/generate-video", body, &resp, "failed to start video generation"); err != nil {
		return model.VideoJob{}, err
	}
	job := model.VideoJob{RequestID: resp.RequestID}
	if resp.Video != nil {
		job.VideoURL = resp.Video.URL
	}
	return job, nil
}

func (c *Client) VideoStatus(ctx context.Context, requestID string) (model.VideoStatus, error) {
	if c.Mock {
		return model.VideoCompleted, nil
	}
	res, body, err := c.get(ctx, c.BaseURL+"/api/video-status/"+url.PathEscape(requestID))
	if err != nil {
		return "", err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", newAPIError(res.StatusCode, body, fmt.Sprintf("http %d", res.StatusCode))
	}
	var resp map[string]any
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode video status: %w", err)
	}
	return model.VideoStatus(getString(resp, "status")), nil
}

// VideoResult fetches the finished job. The body is decoded whatever the
// status code: an answer without a URL is reported as "", not as an error, so
// the caller can tell a missing URL apart from a failed round trip.
func (c *Client) VideoResult(ctx context.Context, requestID string) (string, error) {
	if c.Mock {
		return "https://example.com/mock_video.mp4", nil
	}
	_, body, err := c.get(ctx, c.BaseURL+"/api/video-result/"+url.PathEscape(requestID))
	if err != nil {
		return "", err
	}
	var resp struct {
		Video *struct {
			URL string `json:"url"`
		} `json:"video"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode video result: %w", err)
	}
	if resp.Video == nil {
		return "", nil
	}
	return resp.Video.URL, nil
}

// FetchVideo downloads the finished video bytes.
func (c *Client) FetchVideo(ctx context.Context, videoURL string) ([]byte, error) {
	if c.Mock {
		return []byte("mock video"), nil
	}
	res, body, err := c.get(ctx, videoURL)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d", res.StatusCode)
	}
	return body, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any, fallback string) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.log.WithField("bytes", len(b)).Debugf("POST %s", path)

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	bodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	c.log.WithField("status", res.StatusCode).Debugf("POST %s done", path)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return newAPIError(res.StatusCode, bodyBytes, fallback)
	}
	return json.Unmarshal(bodyBytes, out)
}

func (c *Client) get(ctx context.Context, target string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, err
	}
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, nil, err
	}
	return res, body, nil
}

// errorMessage pulls the "error" field out of an error body.
func errorMessage(body []byte, fallback string) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return fallback
	}
	switch v := payload["error"].(type) {
	case nil:
		return fallback
	case string:
		if v == "" {
			return fallback
		}
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fallback
		}
		return string(b)
	}
}

func getString(m map[string]any, k string) string {
	if v, ok := m[k]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func mockScenes(show string) []model.Scene {
	beats := []string{
		"arrives at the opening location, looking around warily",
		"meets the main cast and trades a tense glance",
		"is caught in the middle of the central conflict",
		"makes a bold move that changes everything",
		"stands in the final dramatic moment, lit from behind",
	}
	scenes := make([]model.Scene, 0, len(beats))
	for i, beat := range beats {
		scenes = append(scenes, model.Scene{
			Number: i + 1,
			Prompt: fmt.Sprintf("In the world of %s, the person from the reference photo %s. Cinematic, 9:16 portrait.", show, beat),
		})
	}
	return scenes
}
