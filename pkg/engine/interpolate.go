package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/henmie/novelflow/pkg/models"
)

// templatePattern matches {{ EXPR }} placeholders.
var templatePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

var inputAliases = map[string]bool{
	"input": true, "输入": true, "用户问题": true, "开始流程": true,
}

var previousAliases = map[string]bool{
	"previous": true, "上一节点": true, "上一个输出": true,
}

// Interpolator resolves {{...}} placeholders against an ExecutionContext.
type Interpolator struct {
	ctx    *ExecutionContext
	strict bool
}

// NewInterpolator builds a non-strict interpolator: unresolved references
// pass through literally.
func NewInterpolator(ctx *ExecutionContext) *Interpolator {
	return &Interpolator{ctx: ctx}
}

// Strict returns a copy of the interpolator that fails on any unresolved
// reference instead of preserving the literal.
func (in *Interpolator) Strict() *Interpolator {
	return &Interpolator{ctx: in.ctx, strict: true}
}

// Interpolate replaces every {{EXPR}} occurrence per resolve's five-step
// lookup order. Non-strict mode never errors: an unresolved reference is
// left in the output verbatim.
func (in *Interpolator) Interpolate(template string) (string, error) {
	if template == "" || !strings.Contains(template, "{{") {
		return template, nil
	}

	var firstErr error
	out := templatePattern.ReplaceAllStringFunc(template, func(match string) string {
		if firstErr != nil {
			return match
		}
		raw := strings.TrimSpace(match[2 : len(match)-2])
		name := raw
		if idx := strings.Index(raw, ">"); idx >= 0 {
			name = strings.TrimSpace(raw[:idx])
		}

		value, ok := in.resolve(name)
		if !ok {
			if in.strict {
				firstErr = models.NewInputError(models.ErrCodeUndefinedVariable,
					fmt.Errorf("undefined variable reference %q", name))
				return match
			}
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// resolve implements the five-step name-token resolution order.
func (in *Interpolator) resolve(name string) (string, bool) {
	// 1. Initial-input aliases.
	if inputAliases[name] {
		if v, ok := in.ctx.GetVariable(UserQuestionKey); ok {
			return v, true
		}
		return in.ctx.InitialInput(), true
	}

	// 2. Last-output aliases.
	if previousAliases[name] {
		return in.ctx.LastOutput(), true
	}

	// 3. Leading '@' node-ID reference.
	if strings.HasPrefix(name, "@") {
		nodeID := strings.TrimPrefix(name, "@")
		return in.ctx.GetNodeOutput(nodeID)
	}

	// 4. Bare name: nodeOutputs first, then variables.
	if v, ok := in.ctx.GetNodeOutput(name); ok {
		return v, true
	}
	if v, ok := in.ctx.GetVariable(name); ok {
		return v, true
	}

	return "", false
}
