package steps

import (
	"context"

	"github.com/systemstart/dcm2bids/pkg/api"
)

type sortStep struct {
	tool *api.ToolConfig
}

// NewSortStep creates the step that sorts raw DICOMs into the work directory.
func NewSortStep(tool *api.ToolConfig) Step {
	return &sortStep{tool: tool}
}

func (s *sortStep) Name() string { return api.StageSort }

func (s *sortStep) Run(ctx context.Context, sctx StepContext) (*StepResult, error) {
	argv, err := runTool(ctx, api.StageSort, s.tool, sctx)
	if err != nil {
		return nil, err
	}
	return &StepResult{Argv: argv, SortedDir: sctx.WorkDir}, nil
}
