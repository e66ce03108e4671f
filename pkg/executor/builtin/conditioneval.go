package builtin

import (
	"context"
	"regexp"
	"strings"

	"github.com/henmie/novelflow/pkg/executor"
	"github.com/henmie/novelflow/pkg/provider"
)

// resolveConditionInput reads the node/variable named by cfg["variable"],
// the shared "resolve input by variable reference" step used by every
// condition-evaluating handler.
func resolveConditionInput(hc *executor.HandlerContext, cfg map[string]interface{}) string {
	name := executor.GetStringDefault(cfg, "variable", "")
	if v, ok := hc.Context.GetNodeOutput(name); ok {
		return v
	}
	if v, ok := hc.Context.GetVariable(name); ok {
		return v
	}
	return ""
}

// evaluateCondition is the shared evaluator behind condition,
// condition_if, and the legacy loop's embedded condition.
func evaluateCondition(ctx context.Context, hc *executor.HandlerContext, cfg map[string]interface{}, input string) (bool, error) {
	condType := executor.GetStringDefault(cfg, "condition_type", "keyword")
	switch condType {
	case "keyword":
		return evaluateKeyword(cfg, input), nil
	case "length":
		return evaluateLength(cfg, input), nil
	case "regex":
		return evaluateRegex(cfg, input), nil
	case "expression":
		return evaluateExpression(cfg, input)
	case "ai_judge":
		return evaluateAIJudge(ctx, hc, cfg, input)
	default:
		return evaluateKeyword(cfg, input), nil
	}
}

func evaluateKeyword(cfg map[string]interface{}, input string) bool {
	keywords := executor.GetStringSlice(cfg, "keywords")
	mode := executor.GetStringDefault(cfg, "mode", "any")

	if len(keywords) == 0 {
		// Zero keywords in "any" mode is vacuously true.
		return mode != "none"
	}

	switch mode {
	case "all":
		for _, kw := range keywords {
			if !strings.Contains(input, kw) {
				return false
			}
		}
		return true
	case "none":
		for _, kw := range keywords {
			if strings.Contains(input, kw) {
				return false
			}
		}
		return true
	default: // "any"
		for _, kw := range keywords {
			if strings.Contains(input, kw) {
				return true
			}
		}
		return false
	}
}

func evaluateLength(cfg map[string]interface{}, input string) bool {
	operator := executor.GetStringDefault(cfg, "operator", ">")
	target := executor.GetIntDefault(cfg, "length_value", 0)
	n := utf8RuneCount(input)

	switch operator {
	case ">":
		return n > target
	case "<":
		return n < target
	case "=":
		return n == target
	case ">=":
		return n >= target
	case "<=":
		return n <= target
	default:
		return false
	}
}

func utf8RuneCount(s string) int {
	return len([]rune(s))
}

func evaluateRegex(cfg map[string]interface{}, input string) bool {
	pattern := executor.GetStringDefault(cfg, "regex_pattern", "")
	re, err := regexp.Compile(pattern)
	if err != nil {
		// Invalid regex yields false, not an error, per legacy behavior.
		return false
	}
	return re.MatchString(input)
}

// evaluateExpression runs an expr-lang boolean expression against the
// resolved input, exposed to the expression as the "input" variable and
// its rune length as "length" (covering the length/regex-style
// comparisons the keyword/length/regex types handle with fixed shapes).
func evaluateExpression(cfg map[string]interface{}, input string) (bool, error) {
	src := executor.GetStringDefault(cfg, "expression", "")
	if strings.TrimSpace(src) == "" {
		return false, nil
	}
	env := map[string]interface{}{
		"input":  input,
		"length": utf8RuneCount(input),
	}
	return conditionExprCache.compileAndRun(src, env)
}

func evaluateAIJudge(ctx context.Context, hc *executor.HandlerContext, cfg map[string]interface{}, input string) (bool, error) {
	aiPrompt := executor.GetStringDefault(cfg, "aiPrompt", "")
	prompt := aiPrompt + "\n\n请根据以上要求判断以下内容，只需要回复 true 或 false：\n\n" + input

	providerName := executor.GetStringDefault(cfg, "provider", "openai")
	model := executor.GetStringDefault(cfg, "model", "gpt-4o-mini")

	var buf strings.Builder
	err := hc.Provider.StreamChat(ctx, provider.Params{
		Provider:    providerName,
		Model:       model,
		Temperature: 0,
		MaxTokens:   10,
		Messages:    []provider.Message{{Role: "user", Content: prompt}},
	}, func(c provider.Chunk) {
		buf.WriteString(c.Content)
	})
	if err != nil {
		return false, err
	}

	reply := strings.ToLower(buf.String())
	return strings.Contains(reply, "true") && !strings.Contains(reply, "false"), nil
}
