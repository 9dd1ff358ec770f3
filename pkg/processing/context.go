package processing

import (
	"maps"

	"github.com/systemstart/dcm2bids/pkg/api"
	"github.com/systemstart/dcm2bids/pkg/steps"
)

// Keys available to tool command/args templates.
const (
	KeyDicomsDir = "DicomsDir"
	KeyBidsDir   = "BidsDir"
	KeySortedDir = "SortedDir"
	KeyWorkDir   = "WorkDir"
	KeySubject   = "Subject"
	KeySession   = "Session"
	KeyRunID     = "RunID"
	KeyReport    = steps.ReportPathKey
)

// MergeContext performs a shallow merge of local context over global context.
// Local keys override global keys at the top level.
func MergeContext(global, local map[string]any) map[string]any {
	merged := make(map[string]any, len(global)+len(local))
	maps.Copy(merged, global)
	maps.Copy(merged, local)
	return merged
}

// templateData builds the values tools are rendered against. Run values
// win over user context keys of the same name. SortedDir starts as the
// configured pre-sorted directory and is replaced by the sort step's output.
func templateData(userContext map[string]any, cfg *api.PipelineConfig, workDir, reportPath, runID string) map[string]any {
	return MergeContext(userContext, map[string]any{
		KeyDicomsDir: cfg.DicomsDir,
		KeyBidsDir:   cfg.BidsDir,
		KeySortedDir: cfg.SortedDir,
		KeyWorkDir:   workDir,
		KeySubject:   cfg.SubjectID,
		KeySession:   cfg.SessionID,
		KeyRunID:     runID,
		KeyReport:    reportPath,
	})
}
