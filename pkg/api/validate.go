package api

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Validate checks the tools configuration for errors.
func (c *ToolsConfig) Validate() error {
	for _, stage := range Stages {
		tool := c.Tool(stage)
		if tool == nil {
			return fmt.Errorf("%s: tool config is required", stage)
		}
		if strings.TrimSpace(tool.Command) == "" {
			return fmt.Errorf("%s: command is required", stage)
		}
	}

	name := c.Validator.ReportName
	if name == "" {
		return fmt.Errorf("%s: reportName is required", StageValidate)
	}
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) || name == "." || name == ".." {
		return fmt.Errorf("%s: reportName %q must be a plain file name", StageValidate, name)
	}

	return nil
}

// Validate checks a normalized pipeline configuration. Call Normalize first.
func (c *PipelineConfig) Validate() error {
	if c.BidsDir == "" {
		return fmt.Errorf("bids directory is required")
	}
	if !filepath.IsAbs(c.BidsDir) {
		return fmt.Errorf("bids directory %q is not absolute", c.BidsDir)
	}
	if err := checkCreatableDir(c.BidsDir); err != nil {
		return fmt.Errorf("bids directory: %w", err)
	}

	if c.DicomsDir != "" && !filepath.IsAbs(c.DicomsDir) {
		return fmt.Errorf("dicoms directory %q is not absolute", c.DicomsDir)
	}

	if c.SortedDir != "" {
		if !filepath.IsAbs(c.SortedDir) {
			return fmt.Errorf("sorted directory %q is not absolute", c.SortedDir)
		}
		if err := checkExistingDir(c.SortedDir); err != nil {
			return fmt.Errorf("sorted directory: %w", err)
		}
	} else {
		if c.DicomsDir == "" {
			return fmt.Errorf("dicoms directory is required")
		}
		if err := checkExistingDir(c.DicomsDir); err != nil {
			return fmt.Errorf("dicoms directory: %w", err)
		}
	}

	if err := validateLabel("subject", c.SubjectID); err != nil {
		return err
	}
	return validateLabel("session", c.SessionID)
}

func validateLabel(kind, value string) error {
	if value == "" {
		return fmt.Errorf("%s id is empty", kind)
	}
	if strings.ContainsAny(value, `/\`) || value == "." || value == ".." {
		return fmt.Errorf("%s id %q must not contain path elements", kind, value)
	}
	return nil
}

func checkExistingDir(dir string) error {
	st, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("checking %s: %w", dir, err)
	}
	if !st.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

func checkCreatableDir(dir string) error {
	st, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking %s: %w", dir, err)
	}
	if !st.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
