package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/degaulle/sorashorts/internal/model"
	"github.com/degaulle/sorashorts/internal/workflow"
)

// StoryboardTool 分镜生成工具，包装后端的 storyboard 接口
type StoryboardTool struct {
	backend workflow.Backend
}

// StoryboardToolArgs 分镜生成请求参数
type StoryboardToolArgs struct {
	ShowName string       `json:"show_name"`        // 剧名
	Gender   model.Gender `json:"gender,omitempty"` // 主角性别，可选
}

// StoryboardToolResp 分镜生成响应
type StoryboardToolResp struct {
	ShowName string        `json:"show_name"`
	Scenes   []model.Scene `json:"scenes"`
}

func NewStoryboardTool(b workflow.Backend) *StoryboardTool {
	return &StoryboardTool{backend: b}
}

func (t *StoryboardTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	params := map[string]*schema.ParameterInfo{
		"show_name": {Type: schema.String, Required: true, Desc: "TV show the drama parodies"},
		"gender":    {Type: schema.String, Required: false, Desc: "protagonist gender, male or female", Enum: []string{"male", "female"}},
	}
	return &schema.ToolInfo{
		Name:        StoryboardToolName,
		Desc:        "Write a 5-scene storyboard starring the user for the given show",
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}, nil
}

func (t *StoryboardTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...einotool.Option) (string, error) {
	var args StoryboardToolArgs
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", err
	}
	args.ShowName = strings.TrimSpace(args.ShowName)
	if args.ShowName == "" {
		return "", errors.New("show_name required")
	}

	scenes, err := t.backend.GenerateStoryboard(ctx, args.ShowName, args.Gender)
	if err != nil {
		return "", err
	}
	if len(scenes) == 0 {
		return "", workflow.ErrNoScenes
	}
	for i := range scenes {
		if scenes[i].Number == 0 {
			scenes[i].Number = i + 1
		}
	}

	b, err := json.Marshal(StoryboardToolResp{ShowName: args.ShowName, Scenes: scenes})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var _ einotool.InvokableTool = (*StoryboardTool)(nil)
