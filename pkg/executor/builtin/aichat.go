package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/henmie/novelflow/pkg/engine"
	"github.com/henmie/novelflow/pkg/executor"
	"github.com/henmie/novelflow/pkg/models"
	"github.com/henmie/novelflow/pkg/provider"
)

// AIChatHandler runs a streaming call against a configured provider, with
// optional setting injection and per-node conversation history.
type AIChatHandler struct{}

func (AIChatHandler) Type() models.NodeType { return models.NodeTypeAIChat }

func (AIChatHandler) Execute(ctx context.Context, hc *executor.HandlerContext) (*executor.Result, error) {
	cfg := hc.Node.Config
	nodeID := hc.Node.ID

	providerName := executor.GetStringDefault(cfg, "provider", "openai")
	model := executor.GetStringDefault(cfg, "model", "gpt-4o-mini")

	if !hc.Global.ProviderEnabled(providerName) {
		return nil, models.NewConfigurationError(models.ErrCodeProviderUnavailable,
			fmt.Errorf("provider %q is not enabled or missing credentials", providerName))
	}

	systemPrompt, err := hc.Interp.Interpolate(executor.GetStringDefault(cfg, "system_prompt", ""))
	if err != nil {
		return nil, err
	}
	userPrompt, err := hc.Interp.Interpolate(executor.GetStringDefault(cfg, "user_prompt", ""))
	if err != nil {
		return nil, err
	}

	if injected := hc.Settings.Inject(executor.GetStringSlice(cfg, "selected_settings"), hc.Library); injected != "" {
		if systemPrompt == "" {
			systemPrompt = injected
		} else {
			systemPrompt = injected + "\n\n" + systemPrompt
		}
	}

	if strings.TrimSpace(systemPrompt) == "" && strings.TrimSpace(userPrompt) == "" {
		return nil, models.NewInputError(models.ErrCodeEmptyPrompt,
			fmt.Errorf("ai_chat node %s has no system or user prompt after interpolation", nodeID))
	}

	useHistory := executor.GetBoolDefault(cfg, "use_history", false)
	historyCount := executor.GetIntDefault(cfg, "history_count", 0)

	messages := make([]provider.Message, 0, 4)
	if useHistory {
		for _, m := range hc.Context.LastHistory(nodeID, historyCount) {
			messages = append(messages, provider.Message{Role: m.Role, Content: m.Content})
		}
	}
	if systemPrompt != "" {
		messages = append(messages, provider.Message{Role: "system", Content: systemPrompt})
	}
	if userPrompt != "" {
		messages = append(messages, provider.Message{Role: "user", Content: userPrompt})
	}

	var buf strings.Builder
	var cancelled bool
	err = hc.Provider.StreamChat(ctx, provider.Params{
		Provider:    providerName,
		Model:       model,
		Temperature: executor.GetFloatDefault(cfg, "temperature", 0.7),
		MaxTokens:   executor.GetIntDefault(cfg, "max_tokens", 0),
		TopP:        executor.GetFloatDefault(cfg, "top_p", 1.0),
		Messages:    messages,
	}, func(c provider.Chunk) {
		if cancelled {
			return
		}
		buf.WriteString(c.Content)
		if hc.OnChunk != nil {
			hc.OnChunk(nodeID, buf.String())
		}
		if hc.Cancelled != nil && hc.Cancelled() {
			cancelled = true
		}
	})
	if cancelled {
		return nil, models.NewCancelledError()
	}
	if err != nil {
		return nil, models.NewRuntimeError("provider_stream_failed", err)
	}

	output := buf.String()
	if useHistory {
		hc.Context.AppendHistory(nodeID,
			engine.Message{Role: "user", Content: userPrompt},
			engine.Message{Role: "assistant", Content: output})
	}

	return &executor.Result{
		Output: output,
		ResolvedConfig: map[string]interface{}{
			"provider":      providerName,
			"model":         model,
			"system_prompt": systemPrompt,
			"user_prompt":   userPrompt,
		},
	}, nil
}
