package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/degaulle/sorashorts/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, false)
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestGenerateStoryboardSendsGenderOnlyWhenKnown(t *testing.T) {
	var bodies []map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate-storyboard", r.URL.Path)
		bodies = append(bodies, decodeBody(t, r))
		w.Write([]byte(`{"scenes":[{"scene_number":1,"prompt":"a"},{"prompt":"b"}]}`))
	})

	scenes, err := c.GenerateStoryboard(context.Background(), "Breaking Bad", model.GenderFemale)
	require.NoError(t, err)
	assert.Equal(t, []model.Scene{{Number: 1, Prompt: "a"}, {Number: 0, Prompt: "b"}}, scenes)

	_, err = c.GenerateStoryboard(context.Background(), "Breaking Bad", "")
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.Equal(t, "female", bodies[0]["gender"])
	assert.Equal(t, "Breaking Bad", bodies[0]["show_name"])
	_, hasGender := bodies[1]["gender"]
	assert.False(t, hasGender)
}

func TestGenerateImageRequestAndShapes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "data:image/png;base64,AAAA", body["photo"])
		assert.Equal(t, "scene prompt", body["prompt"])
		assert.Equal(t, "Friends", body["show_name"])
		assert.EqualValues(t, 3, body["scene_number"])
		assert.Equal(t, "male", body["gender"])
		w.Write([]byte(`{"output":{"images":[{"url":"https://x/3.jpg"}]}}`))
	})

	u, err := c.GenerateImage(context.Background(), model.ImageRequest{
		Photo:       "data:image/png;base64,AAAA",
		Prompt:      "scene prompt",
		ShowName:    "Friends",
		SceneNumber: 3,
		Gender:      model.GenderMale,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://x/3.jpg", u)
}

func TestGenerateImageErrors(t *testing.T) {
	t.Run("body error message", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"rate limited"}`))
		})
		_, err := c.GenerateImage(context.Background(), model.ImageRequest{SceneNumber: 3})
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
		assert.Equal(t, "rate limited", err.Error())
		assert.True(t, apiErr.FromBody)
	})

	t.Run("fallback message", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`<html>bad gateway</html>`))
		})
		_, err := c.GenerateImage(context.Background(), model.ImageRequest{SceneNumber: 4})
		assert.EqualError(t, err, "failed to generate scene 4")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.False(t, apiErr.FromBody)
	})

	t.Run("unknown shape", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":[]}`))
		})
		_, err := c.GenerateImage(context.Background(), model.ImageRequest{SceneNumber: 1})
		assert.ErrorIs(t, err, ErrNoImageURL)
	})
}

func TestGenerateScenePromptHidesBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"anthropic exploded"}`))
	})
	_, err := c.GenerateScenePrompt(context.Background(), "Friends")
	assert.EqualError(t, err, "failed to generate scene prompt")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.False(t, apiErr.FromBody)
}

func TestGenerateVideoShapes(t *testing.T) {
	responses := []string{`{"request_id":"abc"}`, `{"video":{"url":"https://x/v.mp4"}}`, `{}`}
	i := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "https://x/1.jpg", body["image_url"])
		assert.Equal(t, "opening", body["prompt"])
		w.Write([]byte(responses[i]))
		i++
	})

	job, err := c.GenerateVideo(context.Background(), "https://x/1.jpg", "opening")
	require.NoError(t, err)
	assert.Equal(t, model.VideoJob{RequestID: "abc"}, job)

	job, err = c.GenerateVideo(context.Background(), "https://x/1.jpg", "opening")
	require.NoError(t, err)
	assert.Equal(t, model.VideoJob{VideoURL: "https://x/v.mp4"}, job)

	job, err = c.GenerateVideo(context.Background(), "https://x/1.jpg", "opening")
	require.NoError(t, err)
	assert.Equal(t, model.VideoJob{}, job)
}

func TestVideoStatusAndResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/video-status/abc":
			w.Write([]byte(`{"status":"IN_PROGRESS","raw":"..."}`))
		case "/api/video-result/abc":
			w.Write([]byte(`{"video":{"url":"https://x/video.mp4"}}`))
		case "/api/video-result/missing":
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"error":"Invalid response"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	status, err := c.VideoStatus(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, model.VideoStatus("IN_PROGRESS"), status)
	assert.False(t, status.Terminal())

	u, err := c.VideoResult(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "https://x/video.mp4", u)

	u, err = c.VideoResult(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, u)

	_, err = c.VideoStatus(context.Background(), "unknown")
	assert.Error(t, err)
}

func TestDetectGender(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/detect-gender", r.URL.Path)
		assert.Equal(t, "data:image/jpeg;base64,AA", decodeBody(t, r)["photo"])
		w.Write([]byte(`{"gender":"female"}`))
	})
	g, err := c.DetectGender(context.Background(), "data:image/jpeg;base64,AA")
	require.NoError(t, err)
	assert.Equal(t, model.GenderFemale, g)
}

func TestFetchVideo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/video.mp4" {
			w.Write([]byte("mp4 bytes"))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	})
	data, err := c.FetchVideo(context.Background(), c.BaseURL+"/video.mp4")
	require.NoError(t, err)
	assert.Equal(t, "mp4 bytes", string(data))

	_, err = c.FetchVideo(context.Background(), c.BaseURL+"/expired.mp4")
	assert.Error(t, err)
}

func TestMockClient(t *testing.T) {
	c := NewClient("", 0, true)
	ctx := context.Background()

	scenes, err := c.GenerateStoryboard(ctx, "Friends", "")
	require.NoError(t, err)
	assert.Len(t, scenes, 5)

	u, err := c.GenerateImage(ctx, model.ImageRequest{SceneNumber: 1})
	require.NoError(t, err)
	assert.Contains(t, u, "data:image/png;base64,")

	job, err := c.GenerateVideo(ctx, u, "p")
	require.NoError(t, err)
	assert.NotEmpty(t, job.RequestID)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "boom", errorMessage([]byte(`{"error":"boom"}`), "fallback"))
	assert.Equal(t, "fallback", errorMessage([]byte(`{"error":""}`), "fallback"))
	assert.Equal(t, "fallback", errorMessage([]byte(`{"detail":"x"}`), "fallback"))
	assert.Equal(t, "fallback", errorMessage([]byte(`oops`), "fallback"))
	assert.Equal(t, `{"code":429}`, errorMessage([]byte(`{"error":{"code":429}}`), "fallback"))
}
