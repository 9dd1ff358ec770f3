package steps

import (
	"fmt"

	"github.com/systemstart/dcm2bids/pkg/api"
)

// NewStep creates the Step implementation for a stage.
func NewStep(stage string, tool *api.ToolConfig) (Step, error) {
	if tool == nil {
		return nil, fmt.Errorf("no tool configured for stage %s", stage)
	}

	switch stage {
	case api.StageSort:
		return NewSortStep(tool), nil
	case api.StageConvert:
		return NewConvertStep(tool), nil
	case api.StageValidate:
		return NewValidateStep(tool), nil
	default:
		return nil, fmt.Errorf("unknown stage: %s", stage)
	}
}
