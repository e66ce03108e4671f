package builtin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henmie/novelflow/pkg/engine"
	"github.com/henmie/novelflow/pkg/models"
)

func enabledGlobal() *models.GlobalConfig {
	return &models.GlobalConfig{Providers: map[string]models.ProviderConfig{
		"openai": {Enabled: true, APIKey: "sk-test"},
	}}
}

func TestAIChatHandler_StreamsAndAccumulates(t *testing.T) {
	ctx := engine.NewExecutionContext("", 10, 60)
	node := newNode("ai1", models.NodeTypeAIChat, "", map[string]interface{}{
		"user_prompt": "say hi",
	})
	hc := newHC(node, []*models.Node{node}, 0, ctx)
	hc.Global = enabledGlobal()
	hc.Provider = &fakeStreamer{reply: "hello there"}

	var chunks []string
	hc.OnChunk = func(nodeID, buf string) { chunks = append(chunks, buf) }

	res, err := AIChatHandler{}.Execute(context.Background(), hc)
	require.NoError(t, err)
	assert.Equal(t, "hello there", res.Output)
	assert.NotEmpty(t, chunks)
	assert.Equal(t, "hello there", chunks[len(chunks)-1])
}

func TestAIChatHandler_ProviderDisabledErrors(t *testing.T) {
	ctx := engine.NewExecutionContext("", 10, 60)
	node := newNode("ai1", models.NodeTypeAIChat, "", map[string]interface{}{"user_prompt": "hi"})
	hc := newHC(node, []*models.Node{node}, 0, ctx)
	hc.Global = &models.GlobalConfig{}

	_, err := AIChatHandler{}.Execute(context.Background(), hc)
	require.Error(t, err)
	ee, ok := models.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, models.ErrCodeProviderUnavailable, ee.Code)
}

func TestAIChatHandler_EmptyPromptsError(t *testing.T) {
	ctx := engine.NewExecutionContext("", 10, 60)
	node := newNode("ai1", models.NodeTypeAIChat, "", map[string]interface{}{})
	hc := newHC(node, []*models.Node{node}, 0, ctx)
	hc.Global = enabledGlobal()
	hc.Provider = &fakeStreamer{reply: "unused"}

	_, err := AIChatHandler{}.Execute(context.Background(), hc)
	require.Error(t, err)
	ee, ok := models.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, models.ErrCodeEmptyPrompt, ee.Code)
}

func TestAIChatHandler_SettingInjectionPrefixesSystemPrompt(t *testing.T) {
	ctx := engine.NewExecutionContext("", 10, 60)
	node := newNode("ai1", models.NodeTypeAIChat, "", map[string]interface{}{
		"user_prompt": "hi", "selected_settings": []interface{}{"s1"},
	})
	hc := newHC(node, []*models.Node{node}, 0, ctx)
	hc.Global = enabledGlobal()
	hc.Provider = &fakeStreamer{reply: "ok"}
	hc.Library = []models.Setting{{ID: "s1", Category: "tone", Name: "Formal", Content: "Be formal.", Enabled: true}}

	res, err := AIChatHandler{}.Execute(context.Background(), hc)
	require.NoError(t, err)
	assert.Contains(t, res.ResolvedConfig["system_prompt"].(string), "Be formal.")
}

func TestAIChatHandler_HistoryAppendedWhenEnabled(t *testing.T) {
	ctx := engine.NewExecutionContext("", 10, 60)
	node := newNode("ai1", models.NodeTypeAIChat, "", map[string]interface{}{
		"user_prompt": "question", "use_history": true,
	})
	hc := newHC(node, []*models.Node{node}, 0, ctx)
	hc.Global = enabledGlobal()
	hc.Provider = &fakeStreamer{reply: "answer"}

	_, err := AIChatHandler{}.Execute(context.Background(), hc)
	require.NoError(t, err)

	hist := ctx.LastHistory("ai1", 0)
	require.Len(t, hist, 2)
	assert.Equal(t, "user", hist[0].Role)
	assert.Equal(t, "assistant", hist[1].Role)
}

func TestAIChatHandler_MessageOrderIsHistoryThenSystemThenUser(t *testing.T) {
	ctx := engine.NewExecutionContext("", 10, 60)
	ctx.AppendHistory("ai1",
		engine.Message{Role: "user", Content: "earlier question"},
		engine.Message{Role: "assistant", Content: "earlier answer"})

	node := newNode("ai1", models.NodeTypeAIChat, "", map[string]interface{}{
		"system_prompt": "be terse", "user_prompt": "question", "use_history": true,
	})
	hc := newHC(node, []*models.Node{node}, 0, ctx)
	hc.Global = enabledGlobal()
	fake := &fakeStreamer{reply: "answer"}
	hc.Provider = fake

	_, err := AIChatHandler{}.Execute(context.Background(), hc)
	require.NoError(t, err)

	require.Len(t, fake.lastParams.Messages, 4)
	assert.Equal(t, "user", fake.lastParams.Messages[0].Role)
	assert.Equal(t, "earlier question", fake.lastParams.Messages[0].Content)
	assert.Equal(t, "assistant", fake.lastParams.Messages[1].Role)
	assert.Equal(t, "system", fake.lastParams.Messages[2].Role)
	assert.Equal(t, "be terse", fake.lastParams.Messages[2].Content)
	assert.Equal(t, "user", fake.lastParams.Messages[3].Role)
	assert.Equal(t, "question", fake.lastParams.Messages[3].Content)
}

func TestAIChatHandler_HistoryCountLimitsMessagesSent(t *testing.T) {
	ctx := engine.NewExecutionContext("", 10, 60)
	ctx.AppendHistory("ai1",
		engine.Message{Role: "user", Content: "q1"},
		engine.Message{Role: "assistant", Content: "a1"},
		engine.Message{Role: "user", Content: "q2"},
		engine.Message{Role: "assistant", Content: "a2"})

	node := newNode("ai1", models.NodeTypeAIChat, "", map[string]interface{}{
		"user_prompt": "q3", "use_history": true, "history_count": float64(1),
	})
	hc := newHC(node, []*models.Node{node}, 0, ctx)
	hc.Global = enabledGlobal()
	fake := &fakeStreamer{reply: "a3"}
	hc.Provider = fake

	_, err := AIChatHandler{}.Execute(context.Background(), hc)
	require.NoError(t, err)

	require.Len(t, fake.lastParams.Messages, 2)
	assert.Equal(t, "a2", fake.lastParams.Messages[0].Content)
	assert.Equal(t, "q3", fake.lastParams.Messages[1].Content)
}

func TestAIChatHandler_ProviderErrorWraps(t *testing.T) {
	ctx := engine.NewExecutionContext("", 10, 60)
	node := newNode("ai1", models.NodeTypeAIChat, "", map[string]interface{}{"user_prompt": "hi"})
	hc := newHC(node, []*models.Node{node}, 0, ctx)
	hc.Global = enabledGlobal()
	hc.Provider = &fakeStreamer{err: errors.New("transport down")}

	_, err := AIChatHandler{}.Execute(context.Background(), hc)
	require.Error(t, err)
	ee, ok := models.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, models.RuntimeError, ee.Kind)
}

func TestAIChatHandler_CancelledMidStream(t *testing.T) {
	ctx := engine.NewExecutionContext("", 10, 60)
	node := newNode("ai1", models.NodeTypeAIChat, "", map[string]interface{}{"user_prompt": "hi"})
	hc := newHC(node, []*models.Node{node}, 0, ctx)
	hc.Global = enabledGlobal()
	hc.Provider = &fakeStreamer{reply: "a long reply that keeps going"}

	seen := 0
	hc.Cancelled = func() bool {
		seen++
		return seen > 2
	}

	_, err := AIChatHandler{}.Execute(context.Background(), hc)
	require.Error(t, err)
	ee, ok := models.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, models.CancelledError, ee.Kind)
}
