package builtin

import (
	"context"
	"fmt"

	"github.com/henmie/novelflow/pkg/executor"
	"github.com/henmie/novelflow/pkg/models"
)

// ConditionIfHandler evaluates the block's condition: on false, it jumps
// to the paired condition_else (or condition_end if there is none).
type ConditionIfHandler struct{}

func (ConditionIfHandler) Type() models.NodeType { return models.NodeTypeConditionIf }

func (ConditionIfHandler) Execute(ctx context.Context, hc *executor.HandlerContext) (*executor.Result, error) {
	cfg := hc.Node.Config
	input := resolveConditionInput(hc, cfg)

	result, err := evaluateCondition(ctx, hc, cfg, input)
	if err != nil {
		return nil, err
	}
	blockID := hc.Node.BlockID
	hc.Context.SetVariable("_condition_"+blockID+"_result", boolToStr(result))

	if !result {
		target, err := elseOrEndTarget(hc, blockID)
		if err != nil {
			return nil, err
		}
		hc.Control.JumpTarget = target
	}

	return &executor.Result{
		Output:         boolToStr(result),
		ResolvedConfig: map[string]interface{}{"result": result},
	}, nil
}

func elseOrEndTarget(hc *executor.HandlerContext, blockID string) (string, error) {
	if idx, ok := hc.Blocks.ElseIndex[blockID]; ok {
		return hc.Nodes[idx].ID, nil
	}
	idx, ok := hc.Blocks.CloserIndex[blockID]
	if !ok {
		return "", models.NewControlFlowError(models.ErrCodeUnmatchedBlock,
			fmt.Errorf("condition_if block %s has no matching condition_end", blockID))
	}
	return hc.Nodes[idx].ID, nil
}

// ConditionElseHandler jumps straight to condition_end when the paired
// condition_if already evaluated true, so the else body is skipped.
type ConditionElseHandler struct{}

func (ConditionElseHandler) Type() models.NodeType { return models.NodeTypeConditionElse }

func (ConditionElseHandler) Execute(_ context.Context, hc *executor.HandlerContext) (*executor.Result, error) {
	blockID := hc.Node.BlockID
	resultStr, _ := hc.Context.GetVariable("_condition_" + blockID + "_result")

	if resultStr == "true" {
		idx, ok := hc.Blocks.CloserIndex[blockID]
		if !ok {
			return nil, models.NewControlFlowError(models.ErrCodeUnmatchedBlock,
				fmt.Errorf("condition_else block %s has no matching condition_end", blockID))
		}
		hc.Control.JumpTarget = hc.Nodes[idx].ID
	}

	return &executor.Result{Output: "", ResolvedConfig: map[string]interface{}{}}, nil
}

// ConditionEndHandler is a no-op boundary node closing a condition block.
type ConditionEndHandler struct{}

func (ConditionEndHandler) Type() models.NodeType { return models.NodeTypeConditionEnd }

func (ConditionEndHandler) Execute(_ context.Context, hc *executor.HandlerContext) (*executor.Result, error) {
	return &executor.Result{Output: hc.Context.LastOutput(), ResolvedConfig: map[string]interface{}{}}, nil
}
