package tools

import (
	"context"
	"fmt"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/degaulle/sorashorts/internal/workflow"
)

const (
	StoryboardToolName = "storyboard_generate"
	SceneImageToolName = "scene_image_generate"
	DramaVideoToolName = "drama_video_generate"
)

// Registry looks tools up by the name their Info reports.
type Registry struct {
	tools map[string]einotool.InvokableTool
	order []string
}

// NewRegistry builds the generation tools over one backend and video waiter.
func NewRegistry(ctx context.Context, b workflow.Backend, w workflow.VideoWaiter) (*Registry, error) {
	r := &Registry{tools: make(map[string]einotool.InvokableTool)}
	for _, t := range []einotool.InvokableTool{
		NewStoryboardTool(b),
		NewSceneImageTool(b),
		NewDramaVideoTool(b, w),
	} {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, err
		}
		if _, dup := r.tools[info.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", info.Name)
		}
		r.tools[info.Name] = t
		r.order = append(r.order, info.Name)
	}
	return r, nil
}

func (r *Registry) Get(name string) (einotool.InvokableTool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Infos lists tool infos in registration order.
func (r *Registry) Infos(ctx context.Context) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		info, err := r.tools[name].Info(ctx)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}
