package builtin

import (
	"context"
	"fmt"

	"github.com/henmie/novelflow/pkg/executor"
	"github.com/henmie/novelflow/pkg/models"
)

// ConditionHandler implements the legacy monolithic condition node:
// evaluate a single condition, then jump or end based on the result.
type ConditionHandler struct{}

func (ConditionHandler) Type() models.NodeType { return models.NodeTypeCondition }

func (ConditionHandler) Execute(ctx context.Context, hc *executor.HandlerContext) (*executor.Result, error) {
	cfg := hc.Node.Config
	input := resolveConditionInput(hc, cfg)

	result, err := evaluateCondition(ctx, hc, cfg, input)
	if err != nil {
		return nil, err
	}
	hc.Context.SetVariable("_condition_"+hc.Node.ID, boolToStr(result))

	action := executor.GetStringDefault(cfg, "false_action", "next")
	if result {
		action = executor.GetStringDefault(cfg, "true_action", "next")
	}

	switch action {
	case "end":
		hc.Control.ShouldEnd = true
	case "jump":
		targetKey := "false_target"
		if result {
			targetKey = "true_target"
		}
		target := executor.GetStringDefault(cfg, targetKey, "")
		if target == "" {
			return nil, models.NewControlFlowError(models.ErrCodeJumpTargetMissing,
				fmt.Errorf("condition %s: jump action has no target", hc.Node.ID))
		}
		hc.Control.JumpTarget = target
	}

	return &executor.Result{
		Output:         boolToStr(result),
		ResolvedConfig: map[string]interface{}{"result": result, "action": action},
	}, nil
}

func boolToStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
