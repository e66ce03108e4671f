// novelflow-cli runs a workflow definition file to completion and prints
// its lifecycle events.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/henmie/novelflow/internal/config"
	"github.com/henmie/novelflow/internal/logger"
	"github.com/henmie/novelflow/pkg/engine"
	"github.com/henmie/novelflow/pkg/executor"
	"github.com/henmie/novelflow/pkg/executor/builtin"
	"github.com/henmie/novelflow/pkg/models"
	"github.com/henmie/novelflow/pkg/provider"
)

const usage = `novelflow-cli - run a workflow definition to completion

USAGE:
    novelflow-cli run <workflow.json> [-input <text>]
    novelflow-cli version
    novelflow-cli help

RUN OPTIONS:
    -input <text>   Initial input handed to the start node (default: "")

ENVIRONMENT VARIABLES:
    OPENAI_API_KEY              Credential for the openai provider
    OPENAI_BASE_URL             Override the default OpenAI endpoint
    NOVELFLOW_LOG_LEVEL         debug|info|warn|error (default: info)
    NOVELFLOW_LOOP_MAX_COUNT    absolute loop-counter ceiling (default: 100)
    NOVELFLOW_TIMEOUT_SECONDS   wall-clock execution budget (default: 300)
`

// workflowFile is the on-disk shape a workflow definition is loaded from.
type workflowFile struct {
	Workflow models.Workflow  `json:"workflow"`
	Nodes    []*models.Node   `json:"nodes"`
	Settings []models.Setting `json:"settings,omitempty"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCommand(os.Args[2:])
	case "version":
		fmt.Println("novelflow-cli v0.1.0")
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n", os.Args[1])
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runCommand(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: run requires a workflow file path")
		os.Exit(1)
	}
	path := args[0]
	input := ""
	for i := 1; i < len(args)-1; i++ {
		if args[i] == "-input" {
			input = args[i+1]
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging)
	logger.SetDefault(log)

	wf, err := loadWorkflowFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if wf.Workflow.LoopMaxCount == 0 {
		wf.Workflow.LoopMaxCount = cfg.Engine.DefaultLoopMaxCount
	}
	if wf.Workflow.TimeoutSeconds == 0 {
		wf.Workflow.TimeoutSeconds = cfg.Engine.DefaultTimeoutSeconds
	}
	if err := wf.Workflow.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid workflow: %v\n", err)
		os.Exit(1)
	}
	for _, n := range wf.Nodes {
		if err := n.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid node %s: %v\n", n.ID, err)
			os.Exit(1)
		}
	}

	registry := executor.NewRegistry()
	if err := builtin.RegisterAll(registry); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to register handlers: %v\n", err)
		os.Exit(1)
	}

	global := &models.GlobalConfig{
		Providers: map[string]models.ProviderConfig{
			"openai": {
				Enabled: cfg.Provider.OpenAIEnabled,
				APIKey:  cfg.Provider.OpenAIAPIKey,
				BaseURL: cfg.Provider.OpenAIBaseURL,
			},
		},
	}

	exec, err := engine.NewExecutor(engine.Config{
		Workflow:     &wf.Workflow,
		Nodes:        wf.Nodes,
		Global:       global,
		InitialInput: input,
		Settings:     wf.Settings,
		OnEvent:      printEvent,
		Provider:     provider.NewOpenAIStreamer(cfg.Provider.OpenAIAPIKey, cfg.Provider.OpenAIBaseURL),
		Logger:       log,
	}, registry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to build executor: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		exec.Cancel()
	}()

	outcome := exec.Execute(ctx)

	fmt.Println("---")
	fmt.Printf("execution_id: %s\n", outcome.ExecutionID)
	fmt.Printf("status:  %s\n", outcome.Status)
	fmt.Printf("elapsed: %.2fs\n", outcome.ElapsedSeconds)
	if outcome.Error != "" {
		fmt.Printf("error:   %s\n", outcome.Error)
		os.Exit(1)
	}
	fmt.Printf("output:  %s\n", outcome.Output)
}

func loadWorkflowFile(path string) (*workflowFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var wf workflowFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &wf, nil
}

func printEvent(ev engine.Event) {
	ts := ev.Timestamp.Format(time.RFC3339)
	switch ev.Type {
	case engine.EventNodeStreaming:
		return
	case engine.EventNodeStarted, engine.EventNodeCompleted, engine.EventNodeFailed, engine.EventNodeSkipped:
		fmt.Printf("[%s] %-16s node=%s type=%s\n", ts, ev.Type, ev.NodeID, ev.NodeType)
	default:
		fmt.Printf("[%s] %-16s\n", ts, ev.Type)
	}
}
