// Package models defines the workflow, node, and block data shapes the
// engine operates on, plus the shared error taxonomy.
package models

// NodeType is the closed set of node behaviors the engine dispatches.
type NodeType string

const (
	NodeTypeStart         NodeType = "start"
	NodeTypeOutput        NodeType = "output"
	NodeTypeAIChat        NodeType = "ai_chat"
	NodeTypeVarUpdate     NodeType = "var_update"
	NodeTypeTextExtract   NodeType = "text_extract"
	NodeTypeTextConcat    NodeType = "text_concat"
	NodeTypeCondition     NodeType = "condition" // legacy monolithic
	NodeTypeLoop          NodeType = "loop"       // legacy monolithic
	NodeTypeLoopStart     NodeType = "loop_start"
	NodeTypeLoopEnd       NodeType = "loop_end"
	NodeTypeParallelStart NodeType = "parallel_start"
	NodeTypeParallelEnd   NodeType = "parallel_end"
	NodeTypeConditionIf   NodeType = "condition_if"
	NodeTypeConditionElse NodeType = "condition_else"
	NodeTypeConditionEnd  NodeType = "condition_end"
)

// Node is a single ordered, identified step in a workflow.
type Node struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Type        NodeType               `json:"type"`
	OrderIndex  int                    `json:"order_index"`
	Config      map[string]interface{} `json:"config"`
	BlockID     string                 `json:"block_id,omitempty"`
	Description string                 `json:"description,omitempty"`
}

// Validate checks the structural requirements that do not depend on the
// surrounding node list (block pairing is validated separately by
// BuildBlockMap, since it is a whole-workflow property).
func (n *Node) Validate() error {
	if n.ID == "" {
		return &ValidationError{Field: "id", Message: "node ID is required"}
	}
	if n.Type == "" {
		return &ValidationError{Field: "type", Message: "node type is required"}
	}
	if needsBlockID(n.Type) && n.BlockID == "" {
		return NewControlFlowError(ErrCodeMissingBlockID, &ValidationError{
			Field:   "block_id",
			Message: string(n.Type) + " requires a block_id",
		})
	}
	return nil
}

func needsBlockID(t NodeType) bool {
	switch t {
	case NodeTypeLoopStart, NodeTypeLoopEnd, NodeTypeParallelStart, NodeTypeParallelEnd,
		NodeTypeConditionIf, NodeTypeConditionElse, NodeTypeConditionEnd:
		return true
	default:
		return false
	}
}

// IsBlockOpener reports whether t opens a block sentinel pair.
func IsBlockOpener(t NodeType) bool {
	switch t {
	case NodeTypeLoopStart, NodeTypeParallelStart, NodeTypeConditionIf:
		return true
	default:
		return false
	}
}

// IsBlockCloser reports whether t closes a block sentinel pair.
func IsBlockCloser(t NodeType) bool {
	switch t {
	case NodeTypeLoopEnd, NodeTypeParallelEnd, NodeTypeConditionEnd:
		return true
	default:
		return false
	}
}

// matchingCloser returns the closer NodeType for a given opener.
func matchingCloser(t NodeType) NodeType {
	switch t {
	case NodeTypeLoopStart:
		return NodeTypeLoopEnd
	case NodeTypeParallelStart:
		return NodeTypeParallelEnd
	case NodeTypeConditionIf:
		return NodeTypeConditionEnd
	default:
		return ""
	}
}
