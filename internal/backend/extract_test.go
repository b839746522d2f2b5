package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractImageURL(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"images list", `{"images":[{"url":"https://x/1.jpg"},{"url":"https://x/2.jpg"}]}`, "https://x/1.jpg"},
		{"single image", `{"image":{"url":"https://x/single.jpg"}}`, "https://x/single.jpg"},
		{"nested output", `{"output":{"images":[{"url":"https://x/out.jpg"}]}}`, "https://x/out.jpg"},
		{"images wins over image", `{"image":{"url":"https://x/b.jpg"},"images":[{"url":"https://x/a.jpg"}]}`, "https://x/a.jpg"},
		{"image wins over output", `{"output":{"images":[{"url":"https://x/c.jpg"}]},"image":{"url":"https://x/b.jpg"}}`, "https://x/b.jpg"},
		{"empty images falls through", `{"images":[],"image":{"url":"https://x/b.jpg"}}`, "https://x/b.jpg"},
		{"malformed images falls through", `{"images":"nope","output":{"images":[{"url":"https://x/c.jpg"}]}}`, "https://x/c.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractImageURL([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractImageURLNoShape(t *testing.T) {
	bodies := []string{
		``,
		`null`,
		`[]`,
		`"https://x/1.jpg"`,
		`{}`,
		`{"images":[{"url":""}]}`,
		`{"image":{}}`,
		`{"output":{"images":[]}}`,
		`{"output":{}}`,
		`{"data":[{"url":"https://x/1.jpg"}]}`,
	}
	for _, body := range bodies {
		_, err := ExtractImageURL([]byte(body))
		assert.ErrorIs(t, err, ErrNoImageURL, body)
	}
}

func FuzzExtractImageURL(f *testing.F) {
	f.Add([]byte(`{"images":[{"url":"https://x/1.jpg"}]}`))
	f.Add([]byte(`{"image":{"url":"https://x/1.jpg"}}`))
	f.Add([]byte(`{"output":{"images":[{"url":"https://x/1.jpg"}]}}`))
	f.Add([]byte(`{"output":{"images":null}}`))
	f.Add([]byte(`not json`))
	f.Fuzz(func(t *testing.T, raw []byte) {
		u, err := ExtractImageURL(raw)
		if err != nil {
			if err != ErrNoImageURL {
				t.Fatalf("unexpected error %v", err)
			}
			if u != "" {
				t.Fatalf("url %q returned together with an error", u)
			}
			return
		}
		if u == "" {
			t.Fatal("empty url without error")
		}
	})
}
