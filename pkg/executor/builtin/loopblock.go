package builtin

import (
	"context"
	"fmt"

	"github.com/henmie/novelflow/pkg/executor"
	"github.com/henmie/novelflow/pkg/models"
)

// LoopStartHandler re-evaluates the loop's condition on every visit and
// either admits another iteration or exits to the node following the
// paired loop_end (ending the run if loop_end is the last node).
type LoopStartHandler struct{}

func (LoopStartHandler) Type() models.NodeType { return models.NodeTypeLoopStart }

func (LoopStartHandler) Execute(ctx context.Context, hc *executor.HandlerContext) (*executor.Result, error) {
	cfg := hc.Node.Config
	blockID := hc.Node.BlockID
	counter := hc.Context.LoopCounter(blockID)
	maxIter := effectiveMaxIterations(hc, executor.GetIntDefault(cfg, "max_iterations", 0))

	if counter >= maxIter {
		return exitLoop(hc, blockID, counter, maxIter)
	}

	shouldContinue := counter == 0
	if !shouldContinue {
		condType := executor.GetStringDefault(cfg, "condition_type", "count")
		if condType == "count" {
			shouldContinue = counter < maxIter
		} else {
			var err error
			input := resolveConditionInput(hc, cfg)
			shouldContinue, err = evaluateCondition(ctx, hc, cfg, input)
			if err != nil {
				return nil, err
			}
		}
	}

	if !shouldContinue {
		return exitLoop(hc, blockID, counter, maxIter)
	}

	next := hc.Context.IncrementLoopCounter(blockID)
	hc.Context.SetLoopStart(hc.Node.ID, hc.Index)
	return &executor.Result{
		Output:         fmt.Sprintf("iteration %d begins", next),
		ResolvedConfig: map[string]interface{}{"iteration": next, "max_iterations": maxIter},
	}, nil
}

func exitLoop(hc *executor.HandlerContext, blockID string, counter, maxIter int) (*executor.Result, error) {
	hc.Context.ResetLoopCounter(blockID)
	hc.Context.ClearLoopStart()

	closerIdx, ok := hc.Blocks.CloserIndex[blockID]
	if !ok {
		return nil, models.NewControlFlowError(models.ErrCodeUnmatchedBlock,
			fmt.Errorf("loop_start block %s has no matching loop_end", blockID))
	}
	if closerIdx+1 < len(hc.Nodes) {
		hc.Control.JumpTarget = hc.Nodes[closerIdx+1].ID
	} else {
		hc.Control.ShouldEnd = true
	}

	return &executor.Result{
		Output:         "loop ended",
		ResolvedConfig: map[string]interface{}{"iteration": counter, "max_iterations": maxIter},
	}, nil
}

// LoopEndHandler hands control back to the paired loop_start for
// re-evaluation.
type LoopEndHandler struct{}

func (LoopEndHandler) Type() models.NodeType { return models.NodeTypeLoopEnd }

func (LoopEndHandler) Execute(_ context.Context, hc *executor.HandlerContext) (*executor.Result, error) {
	blockID := hc.Node.BlockID
	openerIdx, ok := hc.Blocks.OpenerIndex[blockID]
	if !ok {
		return nil, models.NewControlFlowError(models.ErrCodeUnmatchedBlock,
			fmt.Errorf("loop_end block %s has no matching loop_start", blockID))
	}
	hc.Control.JumpTarget = hc.Nodes[openerIdx].ID
	return &executor.Result{Output: hc.Context.LastOutput(), ResolvedConfig: map[string]interface{}{}}, nil
}
