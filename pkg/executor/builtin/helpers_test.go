package builtin

import (
	"context"
	"time"

	"github.com/henmie/novelflow/pkg/engine"
	"github.com/henmie/novelflow/pkg/executor"
	"github.com/henmie/novelflow/pkg/models"
	"github.com/henmie/novelflow/pkg/provider"
)

func nowForTest() time.Time { return time.Now() }

// fakeStreamer is a deterministic provider.ChatStreamer for tests: it
// replays a fixed reply as a sequence of one-rune chunks, or returns a
// canned error instead.
type fakeStreamer struct {
	reply      string
	err        error
	calls      int
	lastParams provider.Params
}

func (f *fakeStreamer) StreamChat(ctx context.Context, params provider.Params, onChunk provider.OnChunk) error {
	f.calls++
	f.lastParams = params
	if f.err != nil {
		return f.err
	}
	for _, r := range f.reply {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		onChunk(provider.Chunk{Content: string(r)})
	}
	onChunk(provider.Chunk{Done: true})
	return nil
}

func newHC(node *models.Node, nodes []*models.Node, index int, ctx *engine.ExecutionContext) *executor.HandlerContext {
	blocks, err := models.BuildBlockMap(nodes)
	if err != nil {
		blocks = &models.BlockMap{OpenerIndex: map[string]int{}, CloserIndex: map[string]int{}, ElseIndex: map[string]int{}}
	}
	return &executor.HandlerContext{
		Context:  ctx,
		Node:     node,
		Nodes:    nodes,
		Index:    index,
		Blocks:   blocks,
		Interp:   engine.NewInterpolator(ctx),
		Settings: engine.NewSettingInjector(nil),
		Global:   &models.GlobalConfig{},
		Cancelled: func() bool { return false },
	}
}

func newNode(id string, typ models.NodeType, blockID string, cfg map[string]interface{}) *models.Node {
	return &models.Node{ID: id, Name: id, Type: typ, BlockID: blockID, Config: cfg}
}
