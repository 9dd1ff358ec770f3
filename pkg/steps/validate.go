package steps

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/systemstart/dcm2bids/pkg/api"
)

// ReportPathKey is the template data key holding the validator report path.
const ReportPathKey = "ReportPath"

type validateStep struct {
	tool *api.ToolConfig
}

// NewValidateStep creates the step that runs the BIDS validator and reads
// back its report.
func NewValidateStep(tool *api.ToolConfig) Step {
	return &validateStep{tool: tool}
}

func (s *validateStep) Name() string { return api.StageValidate }

func (s *validateStep) Run(ctx context.Context, sctx StepContext) (*StepResult, error) {
	reportPath, ok := sctx.TemplateData[ReportPathKey].(string)
	if !ok || reportPath == "" {
		return nil, fmt.Errorf("%s: report path not set", api.StageValidate)
	}

	argv, err := runTool(ctx, api.StageValidate, s.tool, sctx)
	if err != nil {
		return nil, err
	}

	text, err := readReport(reportPath)
	if err != nil {
		return nil, err
	}

	slog.Info("validator report read", "path", reportPath, "bytes", len(text))
	return &StepResult{Argv: argv, Report: &Report{Path: reportPath, Text: text}}, nil
}

func readReport(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", &ReportError{Path: path, Err: fmt.Errorf("%w: %w", ErrReportMissing, err)}
	}
	if err != nil {
		return "", &ReportError{Path: path, Err: err}
	}
	return string(data), nil
}
