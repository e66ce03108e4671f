package engine

// Snapshot is the opaque, JSON-serializable capture of a context's
// mutable tables, excluding conversation histories and per-node states.
// Histories are intentionally dropped: a restored run does not resume
// mid-conversation.
type Snapshot struct {
	Variables       map[string]string `json:"variables"`
	PreviousOutput  string            `json:"previousOutput"`
	NodeOutputs     map[string]string `json:"nodeOutputs"`
	InitialInput    string            `json:"initialInput"`
	LoopCounters    map[string]int    `json:"loopCounters"`
	ElapsedSeconds  float64           `json:"elapsedSeconds"`
}

// Snapshot captures the current context state for external persistence.
func (c *ExecutionContext) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	vars := make(map[string]string, len(c.variables))
	for k, v := range c.variables {
		vars[k] = v
	}
	outputs := make(map[string]string, len(c.nodeOutputs))
	for k, v := range c.nodeOutputs {
		outputs[k] = v
	}
	counters := make(map[string]int, len(c.loopCounters))
	for k, v := range c.loopCounters {
		counters[k] = v
	}

	return Snapshot{
		Variables:      vars,
		PreviousOutput: c.lastOutput,
		NodeOutputs:    outputs,
		InitialInput:   c.initialInput,
		LoopCounters:   counters,
		ElapsedSeconds: c.Elapsed().Seconds(),
	}
}

// RestoreContext rehydrates a context's tables from a snapshot. nodeStates
// and conversation histories start empty, by design: a restored run does
// not resume mid-conversation, and node lifecycle records belong to the
// run that is about to execute, not the one that was snapshotted.
func RestoreContext(snap Snapshot, maxLoopCount, timeoutSeconds int) *ExecutionContext {
	c := NewExecutionContext(snap.InitialInput, maxLoopCount, timeoutSeconds)
	for k, v := range snap.Variables {
		c.variables[k] = v
	}
	for k, v := range snap.NodeOutputs {
		c.nodeOutputs[k] = v
	}
	for k, v := range snap.LoopCounters {
		c.loopCounters[k] = v
	}
	c.lastOutput = snap.PreviousOutput
	return c
}
