package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/henmie/novelflow/pkg/executor"
	"github.com/henmie/novelflow/pkg/models"
)

// TextExtractHandler pulls a substring out of its input using one of
// four extraction modes: regex, start_end, json_path, or md_to_text.
type TextExtractHandler struct{}

func (TextExtractHandler) Type() models.NodeType { return models.NodeTypeTextExtract }

func (TextExtractHandler) Execute(_ context.Context, hc *executor.HandlerContext) (*executor.Result, error) {
	cfg := hc.Node.Config
	input, err := resolveExtractInput(hc)
	if err != nil {
		return nil, err
	}

	mode := executor.GetStringDefault(cfg, "extract_mode", "regex")
	var output string
	switch mode {
	case "regex":
		output, err = extractRegex(cfg, input)
	case "start_end":
		output, err = extractStartEnd(cfg, input)
	case "json_path":
		output, err = extractJSONPath(cfg, input)
	case "md_to_text":
		output = MarkdownToText(input)
	default:
		return nil, models.NewInputError(models.ErrCodeUnsupportedExtract,
			fmt.Errorf("unsupported extract_mode %q", mode))
	}
	if err != nil {
		return nil, err
	}

	return &executor.Result{
		Output:         strings.TrimSpace(output),
		ResolvedConfig: map[string]interface{}{"extract_mode": mode, "input": input},
	}, nil
}

func resolveExtractInput(hc *executor.HandlerContext) (string, error) {
	cfg := hc.Node.Config
	inputMode := executor.GetStringDefault(cfg, "input_mode", "variable")
	raw := executor.GetStringDefault(cfg, "input_variable", "")

	if inputMode == "manual" {
		return hc.Interp.Interpolate(raw)
	}
	if v, ok := hc.Context.GetNodeOutput(raw); ok {
		return v, nil
	}
	if v, ok := hc.Context.GetVariable(raw); ok {
		return v, nil
	}
	return "", nil
}

func extractRegex(cfg map[string]interface{}, input string) (string, error) {
	pattern := executor.GetStringDefault(cfg, "regex_pattern", "")
	if pattern == "" {
		return "", models.NewConfigurationError(models.ErrCodeEmptyPattern, fmt.Errorf("regex_pattern is empty"))
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", models.NewInputError(models.ErrCodeInvalidPattern, err)
	}

	matches := re.FindAllStringSubmatch(input, -1)
	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(m) > 1 {
			lines = append(lines, strings.Join(m[1:], "\n"))
		} else {
			lines = append(lines, m[0])
		}
	}
	return strings.Join(lines, "\n"), nil
}

func extractStartEnd(cfg map[string]interface{}, input string) (string, error) {
	startMarker := executor.GetStringDefault(cfg, "start_marker", "")
	if startMarker == "" {
		return "", models.NewConfigurationError(models.ErrCodeEmptyMarker, fmt.Errorf("start_marker is empty"))
	}
	endMarker := executor.GetStringDefault(cfg, "end_marker", "")

	startIdx := strings.Index(input, startMarker)
	if startIdx < 0 {
		return "", nil
	}
	contentStart := startIdx + len(startMarker)

	if endMarker == "" {
		return input[contentStart:], nil
	}
	endIdx := strings.Index(input[contentStart:], endMarker)
	if endIdx < 0 {
		return input[contentStart:], nil
	}
	return input[contentStart : contentStart+endIdx], nil
}

func extractJSONPath(cfg map[string]interface{}, input string) (string, error) {
	path := executor.GetStringDefault(cfg, "json_path", "")
	if path == "" {
		return "", models.NewConfigurationError(models.ErrCodeEmptyPath, fmt.Errorf("json_path is empty"))
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(input), &doc); err != nil {
		return "", models.NewInputError(models.ErrCodeInvalidJSON, err)
	}

	query, err := gojq.Parse(jqQueryFromPath(path))
	if err != nil {
		return "", models.NewInputError(models.ErrCodeInvalidPattern, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return "", models.NewInputError(models.ErrCodeInvalidPattern, err)
	}

	iter := code.Run(doc)
	v, ok := iter.Next()
	if !ok {
		return "", nil
	}
	if err, isErr := v.(error); isErr {
		// Path did not resolve against this document shape: treated as
		// "undefined", not an error.
		_ = err
		return "", nil
	}
	if v == nil {
		return "", nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", nil
	}
	return string(out), nil
}

// jqQueryFromPath converts a dot/bracket path ("a.b[0].c") into a gojq
// query string, delegating bracket-indexed and nested path handling to
// gojq rather than re-implementing a walker by hand.
func jqQueryFromPath(path string) string {
	if strings.HasPrefix(path, ".") || strings.HasPrefix(path, "[") {
		return "." + strings.TrimPrefix(path, ".")
	}
	return "." + path
}
