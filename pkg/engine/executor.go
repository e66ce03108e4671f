package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/henmie/novelflow/internal/logger"
	"github.com/henmie/novelflow/pkg/executor"
	"github.com/henmie/novelflow/pkg/models"
	"github.com/henmie/novelflow/pkg/provider"
)

// Status is the Executor's coarse lifecycle state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusTimeout   Status = "timeout"
)

// Outcome is what Execute returns: the terminal status plus whatever the
// run produced.
type Outcome struct {
	ExecutionID    string
	Status         Status
	Output         string
	Error          string
	NodeStates     []*NodeState
	ElapsedSeconds float64
}

// Config bundles a single execute() invocation's inputs.
type Config struct {
	Workflow       *models.Workflow
	Nodes          []*models.Node
	Global         *models.GlobalConfig
	InitialInput   string
	Settings       []models.Setting
	SettingPrompts map[string]string
	OnEvent        EventFunc
	Provider       provider.ChatStreamer
	Logger         *logger.Logger
}

// Executor drives the node list's program counter to completion.
type Executor struct {
	cfg     Config
	id      string
	ctx     *ExecutionContext
	blocks  *models.BlockMap
	manager executor.Manager
	interp  *Interpolator
	setting *SettingInjector
	log     *logger.Logger

	mu        sync.Mutex
	status    Status
	pc        int
	cancelled atomic.Bool
	pauseGate chan struct{}
}

// NewExecutor validates the node list's block structure and builds an
// Executor ready to run.
func NewExecutor(cfg Config, manager executor.Manager) (*Executor, error) {
	blocks, err := models.BuildBlockMap(cfg.Nodes)
	if err != nil {
		return nil, err
	}
	ectx := NewExecutionContext(cfg.InitialInput, cfg.Workflow.LoopMaxCount, cfg.Workflow.TimeoutSeconds)
	return &Executor{
		cfg:     cfg,
		id:      uuid.New().String(),
		ctx:     ectx,
		blocks:  blocks,
		manager: manager,
		interp:  NewInterpolator(ectx),
		setting: NewSettingInjector(cfg.SettingPrompts),
		log:     cfg.Logger,
		status:  StatusIdle,
	}, nil
}

// ExecutionID returns the UUID stamped on this run at construction time,
// stable across pause/resume and included on every emitted Outcome.
func (e *Executor) ExecutionID() string { return e.id }

// GetContext exposes the underlying ExecutionContext for read-only
// inspection and snapshotting.
func (e *Executor) GetContext() *ExecutionContext { return e.ctx }

// GetStatus returns the current lifecycle status.
func (e *Executor) GetStatus() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// GetCurrentNodeIndex returns the program counter.
func (e *Executor) GetCurrentNodeIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pc
}

// Pause requests a pause; valid only while running, else a no-op.
func (e *Executor) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != StatusRunning || e.pauseGate != nil {
		return
	}
	e.pauseGate = make(chan struct{})
	e.status = StatusPaused
	e.logDebug("execution paused", "pc", e.pc)
	e.emit(Event{Type: EventExecutionPaused, Timestamp: time.Now()})
}

// Resume clears a pending pause; valid only while paused.
func (e *Executor) Resume() {
	e.mu.Lock()
	if e.status != StatusPaused || e.pauseGate == nil {
		e.mu.Unlock()
		return
	}
	gate := e.pauseGate
	e.pauseGate = nil
	e.status = StatusRunning
	e.mu.Unlock()
	close(gate)
	e.logDebug("execution resumed")
	e.emit(Event{Type: EventExecutionResumed, Timestamp: time.Now()})
}

// Cancel requests cancellation; takes effect at the next step boundary or
// the next ai_chat chunk callback. If paused, it also resumes so the loop
// can observe the flag.
func (e *Executor) Cancel() {
	e.cancelled.Store(true)
	e.Resume()
}

// ModifyNodeOutput updates a completed node's recorded output while
// paused. Subsequent nodes observe the new value through nodeOutputs /
// lastOutput.
func (e *Executor) ModifyNodeOutput(nodeID, newOutput string) bool {
	e.mu.Lock()
	if e.status != StatusPaused {
		e.mu.Unlock()
		return false
	}
	e.mu.Unlock()

	st, ok := e.ctx.GetNodeState(nodeID)
	if !ok {
		return false
	}
	finishedAt := time.Now()
	if st.FinishedAt != nil {
		finishedAt = *st.FinishedAt
	}
	e.ctx.CompleteNode(nodeID, newOutput, finishedAt)
	if e.ctx.lastOutputNodeID == nodeID {
		e.ctx.SetLastOutput(newOutput)
	}
	return true
}

func (e *Executor) emit(ev Event) {
	safeEmit(e.cfg.OnEvent, ev)
}

func (e *Executor) logDebug(msg string, args ...interface{}) {
	if e.log != nil {
		e.log.Debug(msg, append([]interface{}{"execution_id", e.id}, args...)...)
	}
}

func (e *Executor) logError(msg string, args ...interface{}) {
	if e.log != nil {
		e.log.Error(msg, append([]interface{}{"execution_id", e.id}, args...)...)
	}
}

// Execute runs the node list to completion. It is not safe to call twice
// on the same Executor.
func (e *Executor) Execute(ctx context.Context) Outcome {
	e.mu.Lock()
	e.status = StatusRunning
	e.mu.Unlock()
	e.logDebug("execution started", "node_count", len(e.cfg.Nodes))
	e.emit(Event{Type: EventExecutionStarted, Timestamp: time.Now()})

	nodes := e.cfg.Nodes

	for {
		if e.cancelled.Load() {
			return e.finish(StatusCancelled, Event{Type: EventExecutionCancelled, Timestamp: time.Now()})
		}
		if e.ctx.TimedOut() {
			return e.finish(StatusTimeout, Event{Type: EventExecutionTimeout, Timestamp: time.Now()})
		}

		e.mu.Lock()
		gate := e.pauseGate
		e.mu.Unlock()
		if gate != nil {
			<-gate
			if e.cancelled.Load() {
				return e.finish(StatusCancelled, Event{Type: EventExecutionCancelled, Timestamp: time.Now()})
			}
		}

		e.mu.Lock()
		pc := e.pc
		e.mu.Unlock()
		if pc >= len(nodes) {
			break
		}

		node := nodes[pc]
		result, control, err := e.dispatch(ctx, pc)
		if err != nil {
			return e.fail(node, err)
		}

		e.emit(Event{
			Type: EventNodeCompleted, NodeID: node.ID, NodeName: node.Name,
			NodeType: string(node.Type), Content: result.Output,
			ResolvedConfig: result.ResolvedConfig, Timestamp: time.Now(),
		})

		if control.ShouldEnd {
			return e.finish(StatusCompleted, Event{Type: EventExecutionCompleted, Timestamp: time.Now()})
		}

		if control.JumpTarget != "" {
			target := control.JumpTarget
			idx := e.indexOf(target)
			if idx < 0 {
				return e.fail(node, models.NewControlFlowError(models.ErrCodeUnknownJumpTarget,
					unknownJumpTargetErr(target)))
			}
			e.setPC(idx)
			continue
		}

		e.mu.Lock()
		e.pc++
		next := e.pc
		e.mu.Unlock()

		if next >= len(nodes) {
			if _, startIdx, ok := e.ctx.LoopStart(); ok {
				e.setPC(startIdx)
				e.ctx.ClearLoopStart()
				continue
			}
		}
	}

	return e.finish(StatusCompleted, Event{Type: EventExecutionCompleted, Timestamp: time.Now()})
}

func (e *Executor) setPC(idx int) {
	e.mu.Lock()
	e.pc = idx
	e.mu.Unlock()
}

func (e *Executor) indexOf(nodeID string) int {
	for i, n := range e.cfg.Nodes {
		if n.ID == nodeID {
			return i
		}
	}
	return -1
}

func unknownJumpTargetErr(target string) error {
	return &models.ValidationError{Field: "jumpTarget", Message: "unknown node ID " + target}
}

func (e *Executor) fail(node *models.Node, err error) Outcome {
	e.ctx.FailNode(node.ID, err.Error(), time.Now())
	e.logError("node failed", "node_id", node.ID, "node_type", string(node.Type), "error", err.Error())
	e.emit(Event{Type: EventNodeFailed, NodeID: node.ID, NodeName: node.Name, NodeType: string(node.Type), Error: err.Error(), Timestamp: time.Now()})

	if engErr, ok := models.AsEngineError(err); ok && engErr.Kind == models.CancelledError {
		return e.finish(StatusCancelled, Event{Type: EventExecutionCancelled, Timestamp: time.Now()})
	}

	e.mu.Lock()
	e.status = StatusFailed
	e.mu.Unlock()
	e.logError("execution failed", "error", err.Error())
	e.emit(Event{Type: EventExecutionFailed, Error: err.Error(), Timestamp: time.Now()})
	return Outcome{
		ExecutionID: e.id, Status: StatusFailed, Error: err.Error(),
		NodeStates: e.ctx.AllNodeStates(e.nodeOrder()), ElapsedSeconds: e.ctx.Elapsed().Seconds(),
	}
}

func (e *Executor) finish(status Status, terminal Event) Outcome {
	e.mu.Lock()
	e.status = status
	e.mu.Unlock()
	e.logDebug("execution finished", "status", string(status))
	e.emit(terminal)
	return Outcome{
		ExecutionID: e.id, Status: status, Output: e.ctx.LastOutput(),
		NodeStates: e.ctx.AllNodeStates(e.nodeOrder()), ElapsedSeconds: e.ctx.Elapsed().Seconds(),
	}
}

func (e *Executor) nodeOrder() []string {
	order := make([]string, len(e.cfg.Nodes))
	for i, n := range e.cfg.Nodes {
		order[i] = n.ID
	}
	return order
}

func (e *Executor) dispatchContext(node *models.Node, index int) *executor.HandlerContext {
	return &executor.HandlerContext{
		Context:  e.ctx,
		Node:     node,
		Nodes:    e.cfg.Nodes,
		Index:    index,
		Blocks:   e.blocks,
		Interp:   e.interp,
		Settings: e.setting,
		Global:   e.cfg.Global,
		Library:  e.cfg.Settings,
		Provider: e.cfg.Provider,
		OnChunk: func(nodeID, buffer string) {
			e.emit(Event{Type: EventNodeStreaming, NodeID: nodeID, Content: buffer, Timestamp: time.Now()})
		},
		Cancelled: e.cancelled.Load,
		Dispatch: func(ctx context.Context, nodeIdx int) (*executor.Result, error) {
			result, _, err := e.dispatch(ctx, nodeIdx)
			return result, err
		},
	}
}

// dispatch runs the ordinary single-node path: handler lookup,
// node_started bookkeeping/emission, handler invocation, and
// node-state/output recording on success. It is called by the main loop
// directly and re-entrantly by parallel_start through
// HandlerContext.Dispatch; each call builds its own HandlerContext, so
// concurrent calls from sibling parallel tasks do not share mutable
// executor state beyond the mutex-guarded ExecutionContext.
func (e *Executor) dispatch(ctx context.Context, index int) (*executor.Result, executor.Control, error) {
	node := e.cfg.Nodes[index]
	handler, err := e.manager.Get(node.Type)
	if err != nil {
		return nil, executor.Control{}, err
	}

	hc := e.dispatchContext(node, index)
	e.ctx.StartNode(node.ID, "", time.Now())
	e.logDebug("dispatching node", "node_id", node.ID, "node_type", string(node.Type), "index", index)
	e.emit(Event{Type: EventNodeStarted, NodeID: node.ID, NodeName: node.Name, NodeType: string(node.Type), Timestamp: time.Now()})

	result, err := handler.Execute(ctx, hc)
	if err != nil {
		return nil, executor.Control{}, err
	}

	e.ctx.CompleteNode(node.ID, result.Output, time.Now())

	return result, hc.Control, nil
}
