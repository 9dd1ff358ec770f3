package steps

import "context"

// StepContext provides the runtime context for a step.
type StepContext struct {
	WorkDir      string         // scratch directory owned by the run, used as the tool's cwd
	TemplateData map[string]any // values available to command/args templates
}

// StepResult holds the output of a step.
type StepResult struct {
	Argv      []string // the command line that was executed
	SortedDir string   // set by the sort step
	Report    *Report  // set by the validate step
}

// Report is the validator's output file, read back verbatim.
type Report struct {
	Path string
	Text string
}

// Step is the interface all pipeline stages implement.
type Step interface {
	Name() string
	Run(ctx context.Context, sctx StepContext) (*StepResult, error)
}
