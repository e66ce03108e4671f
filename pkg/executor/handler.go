// Package executor defines the per-node-type handler contract and a
// thread-safe registry dispatching node types to handlers.
package executor

import (
	"context"

	"github.com/henmie/novelflow/pkg/engine"
	"github.com/henmie/novelflow/pkg/models"
	"github.com/henmie/novelflow/pkg/provider"
)

// Result is what every handler returns: the node's string output plus a
// read-only record of its post-interpolation configuration values, for
// observability only.
type Result struct {
	Output         string
	ResolvedConfig map[string]interface{}
}

// Control carries the control-flow flags a handler may set. The
// Executor main loop consults these after every dispatch.
type Control struct {
	JumpTarget string
	ShouldEnd  bool
}

// HandlerContext is the per-dispatch environment passed to a handler: the
// shared execution state, the node being executed, the full ordered node
// list and its precomputed block map (so block handlers can locate their
// paired sentinel without a rescan), and the external collaborators
// (AI streaming, cancellation, chunk observation).
type HandlerContext struct {
	Context  *engine.ExecutionContext
	Node     *models.Node
	Nodes    []*models.Node
	Index    int
	Blocks   *models.BlockMap
	Interp   *engine.Interpolator
	Settings *engine.SettingInjector
	Global   *models.GlobalConfig
	Library  []models.Setting

	Provider provider.ChatStreamer

	// OnChunk is called with the full accumulated buffer after every
	// streaming fragment, so the Executor can emit node_streaming.
	OnChunk func(nodeID, buffer string)

	// Cancelled reports whether cancellation has been requested, checked
	// by ai_chat inside its chunk callback.
	Cancelled func() bool

	// Dispatch runs the ordinary single-node execution path (handler
	// lookup, interpolation, node-state bookkeeping) against
	// Nodes[nodeIndex], without touching the program counter. It is how
	// parallel_start invokes its task set on a single node without
	// reaching into Executor internals.
	Dispatch func(ctx context.Context, nodeIndex int) (*Result, error)

	Control Control
}

// Handler implements one node type's behavioral contract.
type Handler interface {
	Type() models.NodeType
	Execute(ctx context.Context, hc *HandlerContext) (*Result, error)
}

// HandlerFunc adapts a plain function to the Handler interface for node
// types that need no extra state.
type HandlerFunc struct {
	NodeType models.NodeType
	Fn       func(ctx context.Context, hc *HandlerContext) (*Result, error)
}

func (f HandlerFunc) Type() models.NodeType { return f.NodeType }

func (f HandlerFunc) Execute(ctx context.Context, hc *HandlerContext) (*Result, error) {
	return f.Fn(ctx, hc)
}
