package builtin

import (
	"context"
	"strings"

	"github.com/henmie/novelflow/pkg/executor"
	"github.com/henmie/novelflow/pkg/models"
)

// TextConcatHandler joins a list of sources with a separator. Each
// source is resolved by mode (or the legacy type field).
type TextConcatHandler struct{}

func (TextConcatHandler) Type() models.NodeType { return models.NodeTypeTextConcat }

func (TextConcatHandler) Execute(_ context.Context, hc *executor.HandlerContext) (*executor.Result, error) {
	cfg := hc.Node.Config
	sources := executor.GetMapSlice(cfg, "sources")
	separator := executor.GetStringDefault(cfg, "separator", "\n")

	parts := make([]string, 0, len(sources))
	resolvedSources := make([]map[string]interface{}, 0, len(sources))
	for _, src := range sources {
		mode := sourceMode(src)
		var value string
		switch mode {
		case "manual", "custom":
			literal := executor.GetStringDefault(src, "manual", "")
			var err error
			value, err = hc.Interp.Interpolate(literal)
			if err != nil {
				return nil, err
			}
		default: // "variable" and anything unrecognized falls back to variable lookup
			name := executor.GetStringDefault(src, "variable", "")
			if v, ok := hc.Context.GetNodeOutput(name); ok {
				value = v
			} else if v, ok := hc.Context.GetVariable(name); ok {
				value = v
			}
		}
		parts = append(parts, value)
		resolvedSources = append(resolvedSources, map[string]interface{}{"mode": mode, "value": value})
	}

	return &executor.Result{
		Output:         strings.Join(parts, separator),
		ResolvedConfig: map[string]interface{}{"separator": separator, "sources": resolvedSources},
	}, nil
}

// sourceMode reads the "mode" field, falling back to the legacy "type"
// field.
func sourceMode(src map[string]interface{}) string {
	if m, ok := executor.GetString(src, "mode"); ok && m != "" {
		return m
	}
	if t, ok := executor.GetString(src, "type"); ok && t != "" {
		return t
	}
	return "variable"
}
