package builtin

import (
	"context"
	"fmt"

	"github.com/henmie/novelflow/pkg/executor"
	"github.com/henmie/novelflow/pkg/models"
)

// LoopHandler implements the legacy monolithic loop node. It has no
// loop_end sentinel: the Executor wraps back to the registered
// loopStartIndex when it runs off the end of the node list.
type LoopHandler struct{}

func (LoopHandler) Type() models.NodeType { return models.NodeTypeLoop }

func (LoopHandler) Execute(ctx context.Context, hc *executor.HandlerContext) (*executor.Result, error) {
	cfg := hc.Node.Config
	key := hc.Node.ID
	counter := hc.Context.LoopCounter(key)
	maxIter := effectiveMaxIterations(hc, executor.GetIntDefault(cfg, "max_iterations", 0))

	if counter >= maxIter {
		hc.Context.ResetLoopCounter(key)
		hc.Context.ClearLoopStart()
		return &executor.Result{
			Output:         "loop ended",
			ResolvedConfig: map[string]interface{}{"iteration": counter, "max_iterations": maxIter},
		}, nil
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
		hc.Context.ResetLoopCounter(key)
		hc.Context.ClearLoopStart()
		return &executor.Result{
			Output:         "loop ended",
			ResolvedConfig: map[string]interface{}{"iteration": counter, "max_iterations": maxIter},
		}, nil
	}

	next := hc.Context.IncrementLoopCounter(key)
	hc.Context.SetLoopStart(hc.Node.ID, hc.Index)
	return &executor.Result{
		Output:         fmt.Sprintf("iteration %d begins", next),
		ResolvedConfig: map[string]interface{}{"iteration": next, "max_iterations": maxIter},
	}, nil
}
