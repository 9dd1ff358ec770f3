package steps

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/systemstart/dcm2bids/pkg/api"
)

func TestRenderArgv(t *testing.T) {
	data := map[string]any{
		"SortedDir": "/tmp/work dir",
		"Subject":   "01",
		"Session":   "02",
		"BidsDir":   "/data/bids",
		"Extra":     "",
	}

	tests := []struct {
		name string
		tool api.ToolConfig
		want []string
	}{
		{
			name: "default converter",
			tool: *api.DefaultTools().Converter,
			want: []string{"mpn_sorted2bids.sh", "-in", "/tmp/work dir", "-id", "01", "-ses", "02", "-o", "/data/bids"},
		},
		{
			name: "sprig functions",
			tool: api.ToolConfig{Command: "conv", Args: []string{"sub-{{ .Subject | upper }}", `{{ .Session | default "x" }}`}},
			want: []string{"conv", "sub-01", "02"},
		},
		{
			name: "empty arguments dropped",
			tool: api.ToolConfig{Command: "conv", Args: []string{"{{ if .Extra }}--extra{{ end }}", "{{ .BidsDir }}"}},
			want: []string{"conv", "/data/bids"},
		},
		{
			name: "command from template",
			tool: api.ToolConfig{Command: `{{ env "DCM2BIDS_TEST_UNSET" | default "deno" }}`},
			want: []string{"deno"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := renderArgv("convert", &tt.tool, data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("argv mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRenderArgv_Errors(t *testing.T) {
	tests := []struct {
		name    string
		tool    api.ToolConfig
		wantErr string
	}{
		{"missing key", api.ToolConfig{Command: "x", Args: []string{"{{ .Nope }}"}}, "convert.args[0]"},
		{"bad syntax", api.ToolConfig{Command: "{{ .Subject"}, "parsing template convert.command"},
		{"empty command", api.ToolConfig{Command: `{{ "" }}`}, "command rendered empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := renderArgv("convert", &tt.tool, map[string]any{"Subject": "01"})
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestRenderEnv_SortedKeys(t *testing.T) {
	env := map[string]string{
		"B_VAR": "{{ .Subject }}",
		"A_VAR": "fixed",
	}

	got, err := renderEnv("sort", env, map[string]any{"Subject": "01"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"A_VAR=fixed", "B_VAR=01"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("env mismatch (-want +got):\n%s", diff)
	}
}
