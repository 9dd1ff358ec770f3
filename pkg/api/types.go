package api

const (
	StageSort     = "sort"
	StageConvert  = "convert"
	StageValidate = "validate"

	SubjectPrefix = "sub-"
	SessionPrefix = "ses-"

	DefaultReportName       = "bids_validator_output.txt"
	DefaultInventoryInclude = "**/*"
)

// Stages lists the pipeline stages in execution order.
var Stages = []string{StageSort, StageConvert, StageValidate}

// PipelineConfig describes a single conversion run.
type PipelineConfig struct {
	DicomsDir string
	BidsDir   string
	SubjectID string // without "sub-"
	SessionID string // without "ses-"

	// SortedDir, when set, points at already sorted DICOMs and the sort
	// stage is skipped.
	SortedDir string
}

// ToolsConfig is the optional tools YAML file. Every section left out
// falls back to DefaultTools.
type ToolsConfig struct {
	Context   map[string]any  `yaml:"context"`
	Sorter    *ToolConfig     `yaml:"sorter,omitempty"`
	Converter *ToolConfig     `yaml:"converter,omitempty"`
	Validator *ToolConfig     `yaml:"validator,omitempty"`
	Inventory InventoryConfig `yaml:"inventory"`
}

// ToolConfig defines how one external executable is invoked. Command and
// every element of Args are text/templates rendered against the run data.
type ToolConfig struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`

	// ReportName is only used by the validator.
	ReportName string `yaml:"reportName,omitempty"`
}

// InventoryConfig selects the files inspected by the DICOM preflight.
type InventoryConfig struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
	Skip    bool     `yaml:"skip"`
}

// Tool returns the configuration for a stage, or nil for an unknown stage.
func (c *ToolsConfig) Tool(stage string) *ToolConfig {
	switch stage {
	case StageSort:
		return c.Sorter
	case StageConvert:
		return c.Converter
	case StageValidate:
		return c.Validator
	default:
		return nil
	}
}

// DefaultTools returns the MPN 7T tool chain: dcmSort.sh, mpn_sorted2bids.sh
// and the deno-hosted BIDS validator.
func DefaultTools() *ToolsConfig {
	return &ToolsConfig{
		Sorter: &ToolConfig{
			Command: "dcmSort.sh",
			Args:    []string{"{{ .DicomsDir }}", "{{ .WorkDir }}"},
		},
		Converter: &ToolConfig{
			Command: "mpn_sorted2bids.sh",
			Args: []string{
				"-in", "{{ .SortedDir }}",
				"-id", "{{ .Subject }}",
				"-ses", "{{ .Session }}",
				"-o", "{{ .BidsDir }}",
			},
		},
		Validator: &ToolConfig{
			Command: "deno",
			Args: []string{
				"run", "--allow-write", "-ERN", "jsr:@bids/validator",
				"{{ .BidsDir }}",
				"--ignoreWarnings",
				"--outfile", "{{ .ReportPath }}",
			},
			ReportName: DefaultReportName,
		},
		Inventory: InventoryConfig{
			Include: []string{DefaultInventoryInclude},
			Exclude: []string{"**/.*", "**/.*/**"},
		},
	}
}
