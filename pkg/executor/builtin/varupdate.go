package builtin

import (
	"context"
	"fmt"

	"github.com/henmie/novelflow/pkg/executor"
	"github.com/henmie/novelflow/pkg/models"
)

// VarUpdateHandler overwrites an already-defined variable with an
// interpolated template.
type VarUpdateHandler struct{}

func (VarUpdateHandler) Type() models.NodeType { return models.NodeTypeVarUpdate }

func (VarUpdateHandler) Execute(_ context.Context, hc *executor.HandlerContext) (*executor.Result, error) {
	cfg := hc.Node.Config
	name, _ := executor.GetString(cfg, "variable_name")

	if _, exists := hc.Context.GetVariable(name); !exists {
		return nil, models.NewInputError(models.ErrCodeUndefinedVariable,
			fmt.Errorf("var_update: variable %q is not defined", name))
	}

	template := executor.GetStringDefault(cfg, "value_template", "")
	value, err := hc.Interp.Interpolate(template)
	if err != nil {
		return nil, err
	}
	hc.Context.SetVariable(name, value)

	return &executor.Result{
		Output:         value,
		ResolvedConfig: map[string]interface{}{"variable_name": name, "value_template": value},
	}, nil
}
