package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/henmie/novelflow/pkg/executor"
	"github.com/henmie/novelflow/pkg/models"
)

const (
	defaultConcurrency = 3
	defaultRetryCount  = 3
)

// ParallelStartHandler runs the body nodes of its block as a batched task
// set and jumps straight to the paired parallel_end, skipping the
// Executor's ordinary node-by-node advance over the body.
type ParallelStartHandler struct{}

func (ParallelStartHandler) Type() models.NodeType { return models.NodeTypeParallelStart }

func (ParallelStartHandler) Execute(ctx context.Context, hc *executor.HandlerContext) (*executor.Result, error) {
	blockID := hc.Node.BlockID
	closerIdx, ok := hc.Blocks.CloserIndex[blockID]
	if !ok {
		return nil, models.NewControlFlowError(models.ErrCodeUnmatchedBlock,
			fmt.Errorf("parallel_start block %s has no matching parallel_end", blockID))
	}

	taskIdxs := make([]int, 0, closerIdx-hc.Index-1)
	for i := hc.Index + 1; i < closerIdx; i++ {
		taskIdxs = append(taskIdxs, i)
	}

	hc.Context.SetVariable("_parallel_"+blockID+"_input", hc.Context.LastOutput())

	cfg := hc.Node.Config
	concurrency := executor.GetIntDefault(cfg, "concurrency", defaultConcurrency)
	if concurrency < 1 {
		concurrency = 1
	}
	retryCount := executor.GetIntDefault(cfg, "retry_count", defaultRetryCount)
	if retryCount < 0 {
		retryCount = 0
	}
	outputMode := executor.GetStringDefault(cfg, "output_mode", "array")
	outputSeparator := executor.GetStringDefault(cfg, "output_separator", "\n")

	results := make([]string, len(taskIdxs))

	if len(taskIdxs) == 0 {
		serialized := serializeParallelResults(results, outputMode, outputSeparator)
		hc.Context.SetVariable("_parallel_"+blockID+"_results", serialized)
		hc.Control.JumpTarget = hc.Nodes[closerIdx].ID
		return &executor.Result{Output: serialized, ResolvedConfig: map[string]interface{}{"task_count": 0}}, nil
	}

	for batchStart := 0; batchStart < len(taskIdxs); batchStart += concurrency {
		batchEnd := batchStart + concurrency
		if batchEnd > len(taskIdxs) {
			batchEnd = len(taskIdxs)
		}
		batch := taskIdxs[batchStart:batchEnd]

		grp, gctx := errgroup.WithContext(ctx)
		for offset, nodeIdx := range batch {
			resultSlot := batchStart + offset
			nodeIdx := nodeIdx
			grp.Go(func() error {
				output, err := runParallelTask(gctx, hc, nodeIdx, retryCount)
				if err != nil {
					return err
				}
				results[resultSlot] = output
				return nil
			})
		}
		if err := grp.Wait(); err != nil {
			return nil, err
		}
	}

	serialized := serializeParallelResults(results, outputMode, outputSeparator)
	hc.Context.SetVariable("_parallel_"+blockID+"_results", serialized)
	hc.Control.JumpTarget = hc.Nodes[closerIdx].ID

	return &executor.Result{
		Output:         serialized,
		ResolvedConfig: map[string]interface{}{"task_count": len(taskIdxs), "concurrency": concurrency},
	}, nil
}

// runParallelTask dispatches a single task-set node with bounded retry.
// Attempts run 1+retryCount times; exhausting them surfaces a RuntimeError
// that aborts the whole execution.
func runParallelTask(ctx context.Context, hc *executor.HandlerContext, nodeIdx, retryCount int) (string, error) {
	var lastErr error
	attempts := 1 + retryCount
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
			jitter := time.Duration(rand.Int63n(int64(backoff/2) + 1))
			backoff += jitter
			select {
			case <-ctx.Done():
				return "", models.NewCancelledError()
			case <-time.After(backoff):
			}
		}
		res, err := hc.Dispatch(ctx, nodeIdx)
		if err == nil {
			return res.Output, nil
		}
		lastErr = err
		if engErr, ok := models.AsEngineError(err); ok && engErr.Kind == models.CancelledError {
			return "", err
		}
	}
	return "", models.NewRuntimeError(models.ErrCodeParallelTaskFailed,
		fmt.Errorf("task node %s failed after %d attempts: %w", hc.Nodes[nodeIdx].ID, attempts, lastErr))
}

func serializeParallelResults(results []string, outputMode, separator string) string {
	if outputMode == "concat" {
		return strings.Join(results, separator)
	}
	encoded, err := json.Marshal(results)
	if err != nil {
		return strings.Join(results, separator)
	}
	return string(encoded)
}

// ParallelEndHandler is a pass-through boundary exposing the aggregated
// task-set results as its output.
type ParallelEndHandler struct{}

func (ParallelEndHandler) Type() models.NodeType { return models.NodeTypeParallelEnd }

func (ParallelEndHandler) Execute(_ context.Context, hc *executor.HandlerContext) (*executor.Result, error) {
	blockID := hc.Node.BlockID
	output, _ := hc.Context.GetVariable("_parallel_" + blockID + "_results")
	return &executor.Result{Output: output, ResolvedConfig: map[string]interface{}{}}, nil
}
