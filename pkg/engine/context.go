// Package engine implements the execution context, interpolator, setting
// injector, and program-counter-driven executor that runs a workflow's
// node list.
package engine

import (
	"sync"
	"time"
)

// UserQuestionKey is the reserved variable name holding the initial user
// input (用户问题).
const UserQuestionKey = "用户问题"

// NodeStatus is a node's lifecycle state within a single execution.
type NodeStatus string

const (
	NodeStatusPending   NodeStatus = "pending"
	NodeStatusRunning   NodeStatus = "running"
	NodeStatusCompleted NodeStatus = "completed"
	NodeStatusFailed    NodeStatus = "failed"
	NodeStatusSkipped   NodeStatus = "skipped"
)

// Message is one entry of a node's per-node conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NodeState is the observable lifecycle record for one node within an
// execution, returned in the final result's nodeStates array.
type NodeState struct {
	NodeID     string     `json:"node_id"`
	Status     NodeStatus `json:"status"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Input      string     `json:"input,omitempty"`
	Output     string     `json:"output,omitempty"`
	Error      string     `json:"error,omitempty"`
}

func (s *NodeState) clone() *NodeState {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

// ExecutionContext is the single mutable object a run's handlers and
// Executor share, guarded throughout by mu.
type ExecutionContext struct {
	mu sync.RWMutex

	variables           map[string]string
	nodeOutputs         map[string]string
	lastOutput          string
	lastOutputNodeID    string
	lastOutputFinished  time.Time
	conversationHistory map[string][]Message
	nodeStates          map[string]*NodeState
	loopCounters        map[string]int

	initialInput   string
	startTime      time.Time
	maxLoopCount   int
	timeoutSeconds int

	// loopStartNode/loopStartIndex implement the legacy monolithic loop's
	// "jump back to here when the node list runs out" bookkeeping.
	loopStartNode  string
	loopStartIndex int
}

// NewExecutionContext creates a context with empty tables besides the
// initial input.
func NewExecutionContext(initialInput string, maxLoopCount, timeoutSeconds int) *ExecutionContext {
	return &ExecutionContext{
		variables:           make(map[string]string),
		nodeOutputs:         make(map[string]string),
		conversationHistory: make(map[string][]Message),
		nodeStates:          make(map[string]*NodeState),
		loopCounters:        make(map[string]int),
		initialInput:        initialInput,
		startTime:           time.Now(),
		maxLoopCount:        maxLoopCount,
		timeoutSeconds:      timeoutSeconds,
	}
}

// InitialInput returns the string supplied at execution start.
func (c *ExecutionContext) InitialInput() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialInput
}

// MaxLoopCount returns the absolute safety ceiling on any loop counter.
func (c *ExecutionContext) MaxLoopCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxLoopCount
}

// Elapsed returns the wall-clock duration since the context was created.
func (c *ExecutionContext) Elapsed() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Since(c.startTime)
}

// TimedOut reports whether the wall-clock timeout budget is exceeded.
func (c *ExecutionContext) TimedOut() bool {
	return int(c.Elapsed().Seconds()) >= c.timeoutSecondsSnapshot()
}

func (c *ExecutionContext) timeoutSecondsSnapshot() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeoutSeconds
}

// SetVariable sets variables[name] = value.
func (c *ExecutionContext) SetVariable(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variables[name] = value
}

// GetVariable returns variables[name] and whether it was set.
func (c *ExecutionContext) GetVariable(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.variables[name]
	return v, ok
}

// AllVariables returns a shallow copy of the variable table.
func (c *ExecutionContext) AllVariables() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.variables))
	for k, v := range c.variables {
		out[k] = v
	}
	return out
}

// GetNodeOutput returns nodeOutputs[nodeID] and whether it was set.
func (c *ExecutionContext) GetNodeOutput(nodeID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.nodeOutputs[nodeID]
	return v, ok
}

// LastOutput returns the output of the most recently completed node.
func (c *ExecutionContext) LastOutput() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastOutput
}

// SetLastOutput overrides lastOutput directly, used by ModifyNodeOutput
// when the modified node is the most recently completed one.
func (c *ExecutionContext) SetLastOutput(output string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastOutput = output
}

// CompleteNode records a node's final output: updates nodeOutputs,
// lastOutput (the completed node with the latest finishedAt wins), and
// the node's state.
func (c *ExecutionContext) CompleteNode(nodeID, output string, finishedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodeOutputs[nodeID] = output
	if finishedAt.After(c.lastOutputFinished) || c.lastOutputNodeID == "" {
		c.lastOutput = output
		c.lastOutputNodeID = nodeID
		c.lastOutputFinished = finishedAt
	}
	st := c.nodeStates[nodeID]
	if st == nil {
		st = &NodeState{NodeID: nodeID}
		c.nodeStates[nodeID] = st
	}
	st.Status = NodeStatusCompleted
	st.Output = output
	t := finishedAt
	st.FinishedAt = &t
}

// StartNode marks a node running and records its started timestamp and
// resolved input.
func (c *ExecutionContext) StartNode(nodeID, input string, startedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := &NodeState{NodeID: nodeID, Status: NodeStatusRunning, Input: input}
	t := startedAt
	st.StartedAt = &t
	c.nodeStates[nodeID] = st
}

// FailNode marks a node failed with the given error message.
func (c *ExecutionContext) FailNode(nodeID, errMsg string, finishedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.nodeStates[nodeID]
	if st == nil {
		st = &NodeState{NodeID: nodeID}
		c.nodeStates[nodeID] = st
	}
	st.Status = NodeStatusFailed
	st.Error = errMsg
	t := finishedAt
	st.FinishedAt = &t
}

// SkipNode marks a node skipped (not currently produced by any handler,
// reserved for future conditional dispatch extensions).
func (c *ExecutionContext) SkipNode(nodeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodeStates[nodeID] = &NodeState{NodeID: nodeID, Status: NodeStatusSkipped}
}

// GetNodeState returns a copy of a node's lifecycle record.
func (c *ExecutionContext) GetNodeState(nodeID string) (*NodeState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.nodeStates[nodeID]
	return st.clone(), ok
}

// AllNodeStates returns the node states in a stable, caller-owned slice.
func (c *ExecutionContext) AllNodeStates(order []string) []*NodeState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*NodeState, 0, len(order))
	for _, id := range order {
		if st, ok := c.nodeStates[id]; ok {
			out = append(out, st.clone())
		}
	}
	return out
}

// AppendHistory appends a message to a node's conversation history.
func (c *ExecutionContext) AppendHistory(nodeID string, msgs ...Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conversationHistory[nodeID] = append(c.conversationHistory[nodeID], msgs...)
}

// LastHistory returns the last n messages of a node's conversation
// history (or all of them if there are fewer than n).
func (c *ExecutionContext) LastHistory(nodeID string, n int) []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	hist := c.conversationHistory[nodeID]
	if n <= 0 || n >= len(hist) {
		out := make([]Message, len(hist))
		copy(out, hist)
		return out
	}
	out := make([]Message, n)
	copy(out, hist[len(hist)-n:])
	return out
}

// LoopCounter returns the current counter for blockID.
func (c *ExecutionContext) LoopCounter(blockID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loopCounters[blockID]
}

// IncrementLoopCounter increments and returns the new counter value. The
// absolute ceiling from workflow.loopMaxCount is enforced by the loop
// handlers, which compare this value against both their own
// max_iterations and MaxLoopCount before continuing.
func (c *ExecutionContext) IncrementLoopCounter(blockID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loopCounters[blockID]++
	return c.loopCounters[blockID]
}

// ResetLoopCounter zeroes a block's counter (loop exit/reset semantics).
func (c *ExecutionContext) ResetLoopCounter(blockID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loopCounters[blockID] = 0
}

// SetLoopStart records the legacy monolithic loop's re-entry point.
func (c *ExecutionContext) SetLoopStart(nodeID string, index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loopStartNode = nodeID
	c.loopStartIndex = index
}

// ClearLoopStart forgets the legacy loop's re-entry point.
func (c *ExecutionContext) ClearLoopStart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loopStartNode = ""
	c.loopStartIndex = 0
}

// LoopStart returns the legacy loop's registered re-entry point, if any.
func (c *ExecutionContext) LoopStart() (nodeID string, index int, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.loopStartNode == "" {
		return "", 0, false
	}
	return c.loopStartNode, c.loopStartIndex, true
}
