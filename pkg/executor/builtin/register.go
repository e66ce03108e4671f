package builtin

import "github.com/henmie/novelflow/pkg/executor"

// RegisterAll wires every builtin handler into mgr, one Register call per
// supported node type.
func RegisterAll(mgr executor.Manager) error {
	handlers := []executor.Handler{
		StartHandler{},
		OutputHandler{},
		AIChatHandler{},
		VarUpdateHandler{},
		TextExtractHandler{},
		TextConcatHandler{},
		ConditionHandler{},
		LoopHandler{},
		LoopStartHandler{},
		LoopEndHandler{},
		ParallelStartHandler{},
		ParallelEndHandler{},
		ConditionIfHandler{},
		ConditionElseHandler{},
		ConditionEndHandler{},
	}
	for _, h := range handlers {
		if err := mgr.Register(h); err != nil {
			return err
		}
	}
	return nil
}
