package builtin

import (
	"context"

	"github.com/henmie/novelflow/pkg/executor"
	"github.com/henmie/novelflow/pkg/models"
)

// OutputHandler echoes the run's current last output. format is UI
// metadata only.
type OutputHandler struct{}

func (OutputHandler) Type() models.NodeType { return models.NodeTypeOutput }

func (OutputHandler) Execute(_ context.Context, hc *executor.HandlerContext) (*executor.Result, error) {
	format := executor.GetStringDefault(hc.Node.Config, "format", "text")
	return &executor.Result{
		Output:         hc.Context.LastOutput(),
		ResolvedConfig: map[string]interface{}{"format": format},
	}, nil
}
