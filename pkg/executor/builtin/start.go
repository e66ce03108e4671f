// Package builtin implements one handler per node type.
package builtin

import (
	"context"

	"github.com/henmie/novelflow/pkg/engine"
	"github.com/henmie/novelflow/pkg/executor"
	"github.com/henmie/novelflow/pkg/models"
)

// StartHandler seeds the initial input and any default variables.
type StartHandler struct{}

func (StartHandler) Type() models.NodeType { return models.NodeTypeStart }

func (StartHandler) Execute(_ context.Context, hc *executor.HandlerContext) (*executor.Result, error) {
	cfg := hc.Node.Config
	resolved := map[string]interface{}{}

	value := hc.Context.InitialInput()
	if value == "" {
		value = executor.GetStringDefault(cfg, "defaultValue", "")
	}
	hc.Context.SetVariable(engine.UserQuestionKey, value)
	resolved["defaultValue"] = executor.GetStringDefault(cfg, "defaultValue", "")

	customVars := executor.GetMapSlice(cfg, "customVariables")
	resolvedCustom := make([]map[string]interface{}, 0, len(customVars))
	for _, entry := range customVars {
		name, ok := executor.GetString(entry, "name")
		if !ok || name == "" {
			continue
		}
		defaultValue := executor.GetStringDefault(entry, "defaultValue", "")
		interpolated, err := hc.Interp.Interpolate(defaultValue)
		if err != nil {
			return nil, err
		}
		if _, exists := hc.Context.GetVariable(name); !exists {
			hc.Context.SetVariable(name, interpolated)
		}
		resolvedCustom = append(resolvedCustom, map[string]interface{}{
			"name": name, "defaultValue": interpolated,
		})
	}
	resolved["customVariables"] = resolvedCustom

	return &executor.Result{Output: value, ResolvedConfig: resolved}, nil
}
