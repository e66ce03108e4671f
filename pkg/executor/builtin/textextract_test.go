package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henmie/novelflow/pkg/engine"
	"github.com/henmie/novelflow/pkg/executor"
	"github.com/henmie/novelflow/pkg/models"
)

func runExtract(t *testing.T, cfg map[string]interface{}, input string) (*executor.Result, error) {
	t.Helper()
	ctx := engine.NewExecutionContext("", 10, 60)
	ctx.SetVariable("src", input)
	if cfg["input_mode"] == nil {
		cfg["input_mode"] = "variable"
		cfg["input_variable"] = "src"
	}
	node := newNode("n1", models.NodeTypeTextExtract, "", cfg)
	hc := newHC(node, []*models.Node{node}, 0, ctx)

	return TextExtractHandler{}.Execute(context.Background(), hc)
}

func TestTextExtractHandler_Regex(t *testing.T) {
	res, err := runExtract(t, map[string]interface{}{
		"extract_mode": "regex", "regex_pattern": `\d+`,
	}, "order 42 shipped, tracking 99")
	require.NoError(t, err)
	assert.Equal(t, "42\n99", res.Output)
}

func TestTextExtractHandler_RegexWithCapturedGroup(t *testing.T) {
	res, err := runExtract(t, map[string]interface{}{
		"extract_mode": "regex", "regex_pattern": `name: (\w+)`,
	}, "name: Alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", res.Output)
}

func TestTextExtractHandler_RegexEmptyPatternErrors(t *testing.T) {
	_, err := runExtract(t, map[string]interface{}{"extract_mode": "regex"}, "anything")
	require.Error(t, err)
	ee, ok := models.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, models.ErrCodeEmptyPattern, ee.Code)
}

func TestTextExtractHandler_StartEnd(t *testing.T) {
	res, err := runExtract(t, map[string]interface{}{
		"extract_mode": "start_end", "start_marker": "<<", "end_marker": ">>",
	}, "prefix <<middle>> suffix")
	require.NoError(t, err)
	assert.Equal(t, "middle", res.Output)
}

func TestTextExtractHandler_StartEndNoEndMarkerTakesRest(t *testing.T) {
	res, err := runExtract(t, map[string]interface{}{
		"extract_mode": "start_end", "start_marker": "<<",
	}, "prefix <<rest of the string")
	require.NoError(t, err)
	assert.Equal(t, "rest of the string", res.Output)
}

func TestTextExtractHandler_JSONPath(t *testing.T) {
	res, err := runExtract(t, map[string]interface{}{
		"extract_mode": "json_path", "json_path": "user.name",
	}, `{"user": {"name": "Bob"}}`)
	require.NoError(t, err)
	assert.Equal(t, "Bob", res.Output)
}

func TestTextExtractHandler_JSONPathInvalidJSON(t *testing.T) {
	_, err := runExtract(t, map[string]interface{}{
		"extract_mode": "json_path", "json_path": "a",
	}, "not json")
	require.Error(t, err)
	ee, ok := models.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, models.ErrCodeInvalidJSON, ee.Code)
}

func TestTextExtractHandler_MdToText(t *testing.T) {
	res, err := runExtract(t, map[string]interface{}{"extract_mode": "md_to_text"}, "**bold**")
	require.NoError(t, err)
	assert.Equal(t, "bold", res.Output)
}

func TestTextExtractHandler_UnsupportedModeErrors(t *testing.T) {
	_, err := runExtract(t, map[string]interface{}{"extract_mode": "unknown"}, "x")
	require.Error(t, err)
	ee, ok := models.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, models.ErrCodeUnsupportedExtract, ee.Code)
}

func TestTextExtractHandler_ManualInputMode(t *testing.T) {
	ctx := engine.NewExecutionContext("", 10, 60)
	cfg := map[string]interface{}{
		"extract_mode": "regex", "regex_pattern": `\w+`,
		"input_mode": "manual", "input_variable": "literal hello",
	}
	node := newNode("n1", models.NodeTypeTextExtract, "", cfg)
	hc := newHC(node, []*models.Node{node}, 0, ctx)

	res, err := TextExtractHandler{}.Execute(context.Background(), hc)
	require.NoError(t, err)
	assert.Equal(t, "literal\nhello", res.Output)
}
