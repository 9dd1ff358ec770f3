package processing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/systemstart/dcm2bids/pkg/api"
	"github.com/systemstart/dcm2bids/pkg/steps"
)

var stageDescriptions = map[string]string{
	api.StageSort:     "sorting dicoms",
	api.StageConvert:  "converting sorted dicoms to BIDS",
	api.StageValidate: "running BIDS validator",
}

// Runner executes the sort, convert and validate stages for one subject
// session.
type Runner struct {
	Tools *api.ToolsConfig

	// WorkRoot is the parent of the per-run work directory. Empty means
	// os.TempDir().
	WorkRoot string
}

// Result describes a successful run.
type Result struct {
	RunID     string
	Report    *steps.Report
	Inventory *Inventory // nil when the preflight was skipped
	Stages    []string   // stages that ran, in order
	Elapsed   time.Duration
}

// NewRunner creates a Runner; a nil tools config means api.DefaultTools.
func NewRunner(tools *api.ToolsConfig) *Runner {
	if tools == nil {
		tools = api.DefaultTools()
	}
	return &Runner{Tools: tools}
}

// Run normalizes and validates cfg, then runs the pipeline stages in order.
// The first failing stage aborts the run. The work directory is removed on
// every exit path.
func (r *Runner) Run(ctx context.Context, cfg api.PipelineConfig) (*Result, error) {
	start := time.Now()

	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("normalizing configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	runID := uuid.NewString()
	log := slog.With("runID", runID)
	log.Info("starting run",
		"dicomsDir", cfg.DicomsDir,
		"bidsDir", cfg.BidsDir,
		"sortedDir", cfg.SortedDir,
		"subject", cfg.SubjectID,
		"session", cfg.SessionID)

	result := &Result{RunID: runID}

	inv, err := r.preflight(&cfg)
	if err != nil {
		return nil, err
	}
	result.Inventory = inv

	if err := os.MkdirAll(cfg.BidsDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating bids directory: %w", err)
	}

	workDir, err := r.createWorkDir(runID)
	if err != nil {
		return nil, err
	}
	defer removeWorkDir(workDir)
	log.Info("created work directory", "path", workDir)

	reportPath := filepath.Join(cfg.BidsDir, r.Tools.Validator.ReportName)
	data := templateData(r.Tools.Context, &cfg, workDir, reportPath, runID)

	for _, stage := range plan(&cfg) {
		res, err := r.runStage(ctx, log, stage, workDir, data)
		if err != nil {
			log.Error("run failed", "stage", stage, "elapsed", time.Since(start).Round(time.Second))
			return nil, err
		}
		result.Stages = append(result.Stages, stage)

		if res.SortedDir != "" {
			data[KeySortedDir] = res.SortedDir
		}
		if res.Report != nil {
			result.Report = res.Report
		}
	}

	result.Elapsed = time.Since(start)
	log.Info("run completed", "elapsed", result.Elapsed.Round(time.Second))
	return result, nil
}

func (r *Runner) preflight(cfg *api.PipelineConfig) (*Inventory, error) {
	if cfg.SortedDir != "" || r.Tools.Inventory.Skip {
		return nil, nil
	}

	inv, err := DiscoverDicoms(cfg.DicomsDir, r.Tools.Inventory)
	if err != nil {
		return nil, fmt.Errorf("inspecting dicoms directory: %w", err)
	}

	slog.Info("dicom inventory",
		"files", inv.Files,
		"skipped", inv.Skipped,
		"unreadable", inv.Unreadable,
		"patients", inv.Patients,
		"studies", len(inv.Studies),
		"series", len(inv.Series),
		"modalities", inv.Modalities)
	if len(inv.Patients) > 1 {
		slog.Warn("dicoms directory holds more than one patient", "patients", inv.Patients)
	}
	return inv, nil
}

// plan returns the stages to run. A pre-sorted directory skips sorting.
func plan(cfg *api.PipelineConfig) []string {
	if cfg.SortedDir != "" {
		return slices.DeleteFunc(slices.Clone(api.Stages), func(s string) bool {
			return s == api.StageSort
		})
	}
	return slices.Clone(api.Stages)
}

func (r *Runner) runStage(ctx context.Context, log *slog.Logger, stage, workDir string, data map[string]any) (*steps.StepResult, error) {
	step, err := steps.NewStep(stage, r.Tools.Tool(stage))
	if err != nil {
		return nil, fmt.Errorf("creating step %q: %w", stage, err)
	}

	log.Info(fmt.Sprintf("[step %d] %s", slices.Index(api.Stages, stage)+1, stageDescriptions[stage]), "stage", stage)

	stepStart := time.Now()
	res, err := step.Run(ctx, steps.StepContext{WorkDir: workDir, TemplateData: data})
	if err != nil {
		return nil, fmt.Errorf("step %q failed: %w", stage, err)
	}

	log.Info("step finished", "stage", stage, "elapsed", time.Since(stepStart).Round(time.Millisecond))
	return res, nil
}

func (r *Runner) createWorkDir(runID string) (string, error) {
	if r.WorkRoot != "" {
		if err := os.MkdirAll(r.WorkRoot, 0o750); err != nil {
			return "", fmt.Errorf("creating work root: %w", err)
		}
	}

	dir, err := os.MkdirTemp(r.WorkRoot, "dcm2bids-"+runID[:8]+"-")
	if err != nil {
		return "", fmt.Errorf("creating work directory: %w", err)
	}

	// tools receive absolute paths only
	abs, err := filepath.Abs(dir)
	if err != nil {
		removeWorkDir(dir)
		return "", fmt.Errorf("resolving work directory: %w", err)
	}
	return abs, nil
}

func removeWorkDir(dir string) {
	slog.Debug("removing work directory", "path", dir)
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("failed to remove work directory", "path", dir, "error", err)
	}
}
