package builtin

import "github.com/henmie/novelflow/pkg/executor"

// effectiveMaxIterations clamps a node's configured max_iterations by the
// workflow's absolute safety ceiling.
func effectiveMaxIterations(hc *executor.HandlerContext, configured int) int {
	ceiling := hc.Context.MaxLoopCount()
	if ceiling > 0 && ceiling < configured {
		return ceiling
	}
	return configured
}
