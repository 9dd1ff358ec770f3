package api

import (
	"fmt"
	"path/filepath"
	"strings"
)

// StripSubjectPrefix removes every "sub-" occurrence from id.
func StripSubjectPrefix(id string) string {
	return strings.ReplaceAll(strings.TrimSpace(id), SubjectPrefix, "")
}

// StripSessionPrefix removes every "ses-" occurrence from id.
func StripSessionPrefix(id string) string {
	return strings.ReplaceAll(strings.TrimSpace(id), SessionPrefix, "")
}

// Normalize makes all directories absolute and strips BIDS entity prefixes
// from the subject and session ids.
func (c *PipelineConfig) Normalize() error {
	var err error

	if c.DicomsDir, err = absOrEmpty(c.DicomsDir); err != nil {
		return fmt.Errorf("resolving dicoms directory: %w", err)
	}
	if c.BidsDir, err = absOrEmpty(c.BidsDir); err != nil {
		return fmt.Errorf("resolving bids directory: %w", err)
	}
	if c.SortedDir, err = absOrEmpty(c.SortedDir); err != nil {
		return fmt.Errorf("resolving sorted directory: %w", err)
	}

	c.SubjectID = StripSubjectPrefix(c.SubjectID)
	c.SessionID = StripSessionPrefix(c.SessionID)
	return nil
}

func absOrEmpty(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	return filepath.Abs(p)
}
