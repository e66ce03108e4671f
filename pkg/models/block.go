package models

// BlockMap is the precomputed index of block sentinel pairings, keyed by
// BlockID. Computing it once at construction time avoids repeated linear
// scans when a block handler needs to locate its paired sentinel.
type BlockMap struct {
	// OpenerIndex maps a BlockID to the index of its opening node
	// (loop_start, parallel_start, or condition_if).
	OpenerIndex map[string]int
	// CloserIndex maps a BlockID to the index of its closing node
	// (loop_end, parallel_end, or condition_end).
	CloserIndex map[string]int
	// ElseIndex maps a BlockID to the index of its condition_else node,
	// present only for condition blocks that have one.
	ElseIndex map[string]int
}

type openFrame struct {
	nodeType NodeType
	blockID  string
	index    int
}

// BuildBlockMap validates block well-formedness (every opener has a
// matching closer sharing its BlockID, no interleaving, correct nesting)
// and returns the resulting index. Malformed input is rejected as a
// ControlFlowError rather than discovered mid-execution.
func BuildBlockMap(nodes []*Node) (*BlockMap, error) {
	bm := &BlockMap{
		OpenerIndex: make(map[string]int),
		CloserIndex: make(map[string]int),
		ElseIndex:   make(map[string]int),
	}

	var stack []openFrame

	for i, n := range nodes {
		switch {
		case IsBlockOpener(n.Type):
			if n.BlockID == "" {
				return nil, NewControlFlowError(ErrCodeMissingBlockID,
					&ValidationError{Field: "block_id", Message: "opener " + n.ID + " has no block_id"})
			}
			if _, exists := bm.OpenerIndex[n.BlockID]; exists {
				return nil, NewControlFlowError(ErrCodeUnmatchedBlock,
					&ValidationError{Field: "block_id", Message: "duplicate opener for block " + n.BlockID})
			}
			bm.OpenerIndex[n.BlockID] = i
			stack = append(stack, openFrame{nodeType: n.Type, blockID: n.BlockID, index: i})

		case n.Type == NodeTypeConditionElse:
			if n.BlockID == "" {
				return nil, NewControlFlowError(ErrCodeMissingBlockID,
					&ValidationError{Field: "block_id", Message: "condition_else " + n.ID + " has no block_id"})
			}
			if len(stack) == 0 || stack[len(stack)-1].blockID != n.BlockID || stack[len(stack)-1].nodeType != NodeTypeConditionIf {
				return nil, NewControlFlowError(ErrCodeUnmatchedBlock,
					&ValidationError{Field: "block_id", Message: "condition_else " + n.ID + " does not match the innermost open condition_if"})
			}
			bm.ElseIndex[n.BlockID] = i

		case IsBlockCloser(n.Type):
			if n.BlockID == "" {
				return nil, NewControlFlowError(ErrCodeMissingBlockID,
					&ValidationError{Field: "block_id", Message: "closer " + n.ID + " has no block_id"})
			}
			if len(stack) == 0 {
				return nil, NewControlFlowError(ErrCodeUnmatchedBlock,
					&ValidationError{Field: "block_id", Message: "closer " + n.ID + " has no matching opener"})
			}
			top := stack[len(stack)-1]
			if top.blockID != n.BlockID || matchingCloser(top.nodeType) != n.Type {
				return nil, NewControlFlowError(ErrCodeUnmatchedBlock,
					&ValidationError{Field: "block_id", Message: "closer " + n.ID + " does not match the innermost open block"})
			}
			stack = stack[:len(stack)-1]
			bm.CloserIndex[n.BlockID] = i
		}
	}

	if len(stack) > 0 {
		return nil, NewControlFlowError(ErrCodeUnmatchedBlock,
			&ValidationError{Field: "block_id", Message: "unclosed block " + stack[len(stack)-1].blockID})
	}

	return bm, nil
}
