package builtin

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henmie/novelflow/pkg/engine"
	"github.com/henmie/novelflow/pkg/executor"
	"github.com/henmie/novelflow/pkg/models"
)

// dispatchLabeling returns a Dispatch func that labels each task node's
// output with its position in the task set ("out-A" for the first body
// node, at index 1), the way a real handler's output would differ per node.
func dispatchLabeling() func(ctx context.Context, idx int) (*executor.Result, error) {
	return func(ctx context.Context, idx int) (*executor.Result, error) {
		return &executor.Result{Output: "out-" + string(rune('A'+idx-1))}, nil
	}
}

func buildParallelBlock(taskCount int) (*engine.ExecutionContext, []*models.Node) {
	ctx := engine.NewExecutionContext("seed", 10, 60)
	nodes := []*models.Node{
		newNode("ps", models.NodeTypeParallelStart, "p1", map[string]interface{}{"concurrency": 2}),
	}
	for i := 0; i < taskCount; i++ {
		nodes = append(nodes, newNode("task", models.NodeTypeOutput, "", map[string]interface{}{}))
	}
	nodes = append(nodes, newNode("pe", models.NodeTypeParallelEnd, "p1", map[string]interface{}{}))
	return ctx, nodes
}

func TestParallelStartHandler_RunsAllTasksAndPreservesOrder(t *testing.T) {
	ctx, nodes := buildParallelBlock(4)
	hc := newHC(nodes[0], nodes, 0, ctx)
	hc.Dispatch = dispatchLabeling()

	res, err := ParallelStartHandler{}.Execute(context.Background(), hc)
	require.NoError(t, err)
	assert.Equal(t, "pe", hc.Control.JumpTarget)

	var results []string
	require.NoError(t, json.Unmarshal([]byte(res.Output), &results))
	assert.Equal(t, []string{"out-A", "out-B", "out-C", "out-D"}, results)
}

func TestParallelStartHandler_ZeroTasksJumpsStraightToCloser(t *testing.T) {
	ctx, nodes := buildParallelBlock(0)
	hc := newHC(nodes[0], nodes, 0, ctx)

	res, err := ParallelStartHandler{}.Execute(context.Background(), hc)
	require.NoError(t, err)
	assert.Equal(t, "pe", hc.Control.JumpTarget)
	assert.Equal(t, "[]", res.Output)
}

func TestParallelStartHandler_ConcatOutputMode(t *testing.T) {
	ctx, nodes := buildParallelBlock(2)
	nodes[0].Config["output_mode"] = "concat"
	hc := newHC(nodes[0], nodes, 0, ctx)
	hc.Dispatch = dispatchLabeling()

	res, err := ParallelStartHandler{}.Execute(context.Background(), hc)
	require.NoError(t, err)
	assert.Equal(t, "out-A\nout-B", res.Output)
}

func TestParallelStartHandler_ConcatOutputModeCustomSeparator(t *testing.T) {
	ctx, nodes := buildParallelBlock(2)
	nodes[0].Config["output_mode"] = "concat"
	nodes[0].Config["output_separator"] = " | "
	hc := newHC(nodes[0], nodes, 0, ctx)
	hc.Dispatch = dispatchLabeling()

	res, err := ParallelStartHandler{}.Execute(context.Background(), hc)
	require.NoError(t, err)
	assert.Equal(t, "out-A | out-B", res.Output)
}

func TestParallelStartHandler_TaskFailureAbortsAfterRetries(t *testing.T) {
	ctx, nodes := buildParallelBlock(1)
	nodes[0].Config["retry_count"] = 1
	hc := newHC(nodes[0], nodes, 0, ctx)

	var attempts int32
	hc.Dispatch = func(ctx context.Context, idx int) (*executor.Result, error) {
		atomic.AddInt32(&attempts, 1)
		return nil, models.NewRuntimeError("boom", assertErr())
	}

	_, err := ParallelStartHandler{}.Execute(context.Background(), hc)
	require.Error(t, err)
	ee, ok := models.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, models.ErrCodeParallelTaskFailed, ee.Code)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestParallelStartHandler_SucceedsAfterTransientFailure(t *testing.T) {
	ctx, nodes := buildParallelBlock(1)
	nodes[0].Config["retry_count"] = 2
	hc := newHC(nodes[0], nodes, 0, ctx)

	var attempts int32
	hc.Dispatch = func(ctx context.Context, idx int) (*executor.Result, error) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 2 {
			return nil, models.NewRuntimeError("transient", assertErr())
		}
		return &executor.Result{Output: "recovered"}, nil
	}

	res, err := ParallelStartHandler{}.Execute(context.Background(), hc)
	require.NoError(t, err)
	var results []string
	require.NoError(t, json.Unmarshal([]byte(res.Output), &results))
	assert.Equal(t, []string{"recovered"}, results)
}

func TestParallelEndHandler_ReadsStoredResults(t *testing.T) {
	ctx := engine.NewExecutionContext("", 10, 60)
	ctx.SetVariable("_parallel_p1_results", `["a","b"]`)
	node := newNode("pe", models.NodeTypeParallelEnd, "p1", map[string]interface{}{})
	hc := newHC(node, []*models.Node{node}, 0, ctx)

	res, err := ParallelEndHandler{}.Execute(context.Background(), hc)
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, res.Output)
}

func assertErr() error { return errBoom }

var errBoom = simpleError("boom")

type simpleError string

func (e simpleError) Error() string { return string(e) }
