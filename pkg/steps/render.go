package steps

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/systemstart/dcm2bids/pkg/api"
)

// renderArgv expands the tool's command and arguments against data.
// Arguments that render to the empty string are dropped so templates can
// express optional flags.
func renderArgv(stage string, tool *api.ToolConfig, data map[string]any) ([]string, error) {
	command, err := renderValue(stage+".command", tool.Command, data)
	if err != nil {
		return nil, err
	}
	if command == "" {
		return nil, fmt.Errorf("command rendered empty")
	}

	argv := []string{command}
	for i, arg := range tool.Args {
		v, err := renderValue(fmt.Sprintf("%s.args[%d]", stage, i), arg, data)
		if err != nil {
			return nil, err
		}
		if v == "" {
			continue
		}
		argv = append(argv, v)
	}
	return argv, nil
}

// renderEnv expands environment overrides in key order and returns them in
// KEY=value form.
func renderEnv(stage string, env map[string]string, data map[string]any) ([]string, error) {
	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		v, err := renderValue(fmt.Sprintf("%s.env.%s", stage, k), env[k], data)
		if err != nil {
			return nil, err
		}
		out = append(out, k+"="+v)
	}
	return out, nil
}

func renderValue(name, text string, data map[string]any) (string, error) {
	tmpl, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template %s: %w", name, err)
	}
	return buf.String(), nil
}
