package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/degaulle/sorashorts/internal/workflow"
)

// DramaVideoTool 实现eino框架的短剧视频生成工具
type DramaVideoTool struct {
	backend workflow.Backend
	waiter  workflow.VideoWaiter
}

// DramaVideoToolArgs 视频生成请求参数
type DramaVideoToolArgs struct {
	ShowName string `json:"show_name"` // 剧名
	ImageURL string `json:"image_url"` // 首帧图片，通常是第一个场景
	Prompt   string `json:"prompt"`    // 场景提示词，为空时由后端生成
}

// DramaVideoToolResp 视频生成响应
type DramaVideoToolResp struct {
	RequestID string `json:"request_id,omitempty"`
	Prompt    string `json:"prompt"`
	VideoURL  string `json:"video_url"`
}

func NewDramaVideoTool(b workflow.Backend, w workflow.VideoWaiter) *DramaVideoTool {
	return &DramaVideoTool{backend: b, waiter: w}
}

func (t *DramaVideoTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	params := map[string]*schema.ParameterInfo{
		"show_name": {Type: schema.String, Required: true, Desc: "TV show the drama parodies"},
		"image_url": {Type: schema.String, Required: true, Desc: "seed image, usually scene 1"},
		"prompt":    {Type: schema.String, Required: false, Desc: "scene prompt; written by the backend when empty"},
	}
	return &schema.ToolInfo{
		Name:        DramaVideoToolName,
		Desc:        "Animate a scene image into a short drama video and wait until it is rendered",
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}, nil
}

// InvokableRun 提交视频任务并轮询结果
func (t *DramaVideoTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...einotool.Option) (string, error) {
	var args DramaVideoToolArgs
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", err
	}
	args.ShowName = strings.TrimSpace(args.ShowName)
	if args.ShowName == "" || args.ImageURL == "" {
		return "", errors.New("show_name and image_url required")
	}

	if args.Prompt == "" {
		prompt, err := t.backend.GenerateScenePrompt(ctx, args.ShowName)
		if err != nil {
			return "", err
		}
		args.Prompt = prompt
	}

	job, err := t.backend.GenerateVideo(ctx, args.ImageURL, args.Prompt)
	if err != nil {
		return "", err
	}
	out := DramaVideoToolResp{RequestID: job.RequestID, Prompt: args.Prompt, VideoURL: job.VideoURL}
	switch {
	case job.RequestID != "":
		// 轮询获取视频生成结果
		out.VideoURL, err = t.waiter.Wait(ctx, job.RequestID, nil)
		if err != nil {
			return "", err
		}
	case job.VideoURL == "":
		return "", workflow.ErrNoRequestID
	}

	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var _ einotool.InvokableTool = (*DramaVideoTool)(nil)
