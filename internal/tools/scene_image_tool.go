package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/degaulle/sorashorts/internal/backend"
	"github.com/degaulle/sorashorts/internal/model"
	"github.com/degaulle/sorashorts/internal/workflow"
)

// SceneImageTool 单场景图片生成工具，把用户照片放进场景里
type SceneImageTool struct {
	backend workflow.Backend
}

type SceneImageToolResp struct {
	SceneNumber int    `json:"scene_number"`
	ImageURL    string `json:"image_url"`
}

func NewSceneImageTool(b workflow.Backend) *SceneImageTool {
	return &SceneImageTool{backend: b}
}

func (t *SceneImageTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	params := map[string]*schema.ParameterInfo{
		"photo":        {Type: schema.String, Required: true, Desc: "user photo as a base64 data URI"},
		"prompt":       {Type: schema.String, Required: true, Desc: "scene prompt from the storyboard"},
		"show_name":    {Type: schema.String, Required: true, Desc: "TV show the drama parodies"},
		"scene_number": {Type: schema.Integer, Required: true, Desc: "1-based scene number"},
		"gender":       {Type: schema.String, Required: false, Desc: "protagonist gender"},
	}
	return &schema.ToolInfo{
		Name:        SceneImageToolName,
		Desc:        "Render one storyboard scene with the user's face",
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}, nil
}

func (t *SceneImageTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...einotool.Option) (string, error) {
	var args model.ImageRequest
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", err
	}
	if args.Photo == "" || args.Prompt == "" {
		return "", errors.New("photo and prompt required")
	}

	imageURL, err := t.backend.GenerateImage(ctx, args)
	if errors.Is(err, backend.ErrNoImageURL) || (err == nil && imageURL == "") {
		return "", fmt.Errorf("no image returned for scene %d", args.SceneNumber)
	}
	if err != nil {
		return "", err
	}

	b, err := json.Marshal(SceneImageToolResp{SceneNumber: args.SceneNumber, ImageURL: imageURL})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var _ einotool.InvokableTool = (*SceneImageTool)(nil)
