package backend

import (
	"encoding/json"
	"errors"
)

// ErrNoImageURL means an image response matched none of the known shapes.
var ErrNoImageURL = errors.New("no image url in response")

type imageRef struct {
	URL string `json:"url"`
}

// ExtractImageURL normalizes the three image response shapes the backend
// passes through, checked in this order:
//
//	{"images": [{"url": ...}, ...]}
//	{"image": {"url": ...}}
//	{"output": {"images": [{"url": ...}, ...]}}
//
// Each shape is decoded on its own so a malformed field does not hide a
// well-formed one further down the list.
func ExtractImageURL(raw []byte) (string, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil || top == nil {
		return "", ErrNoImageURL
	}

	var images []imageRef
	if decodeField(top, "images", &images) && len(images) > 0 {
		return nonEmpty(images[0].URL)
	}

	var image *imageRef
	if decodeField(top, "image", &image) && image != nil && image.URL != "" {
		return image.URL, nil
	}

	var output *struct {
		Images []imageRef `json:"images"`
	}
	if decodeField(top, "output", &output) && output != nil && output.Images != nil {
		if len(output.Images) == 0 {
			return "", ErrNoImageURL
		}
		return nonEmpty(output.Images[0].URL)
	}
	return "", ErrNoImageURL
}

func decodeField(top map[string]json.RawMessage, key string, out any) bool {
	field, ok := top[key]
	if !ok {
		return false
	}
	return json.Unmarshal(field, out) == nil
}

func nonEmpty(u string) (string, error) {
	if u == "" {
		return "", ErrNoImageURL
	}
	return u, nil
}
