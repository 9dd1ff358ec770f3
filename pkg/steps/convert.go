package steps

import (
	"context"

	"github.com/systemstart/dcm2bids/pkg/api"
)

type convertStep struct {
	tool *api.ToolConfig
}

// NewConvertStep creates the step that turns sorted DICOMs into a BIDS tree.
func NewConvertStep(tool *api.ToolConfig) Step {
	return &convertStep{tool: tool}
}

func (s *convertStep) Name() string { return api.StageConvert }

func (s *convertStep) Run(ctx context.Context, sctx StepContext) (*StepResult, error) {
	argv, err := runTool(ctx, api.StageConvert, s.tool, sctx)
	if err != nil {
		return nil, err
	}
	return &StepResult{Argv: argv}, nil
}
