package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henmie/novelflow/pkg/engine"
	"github.com/henmie/novelflow/pkg/models"
)

func buildConditionBlock(truthy bool) (*engine.ExecutionContext, []*models.Node) {
	ctx := engine.NewExecutionContext("", 10, 60)
	ctx.SetVariable("text", "maybe")
	keyword := "maybe"
	if !truthy {
		keyword = "nope"
	}
	nodes := []*models.Node{
		newNode("if1", models.NodeTypeConditionIf, "c1", map[string]interface{}{
			"variable": "text", "condition_type": "keyword", "keywords": []interface{}{keyword},
		}),
		newNode("body", models.NodeTypeOutput, "", map[string]interface{}{}),
		newNode("else1", models.NodeTypeConditionElse, "c1", map[string]interface{}{}),
		newNode("elseBody", models.NodeTypeOutput, "", map[string]interface{}{}),
		newNode("end1", models.NodeTypeConditionEnd, "c1", map[string]interface{}{}),
	}
	return ctx, nodes
}

func TestConditionIfHandler_TrueFallsThroughToBody(t *testing.T) {
	ctx, nodes := buildConditionBlock(true)
	hc := newHC(nodes[0], nodes, 0, ctx)

	_, err := ConditionIfHandler{}.Execute(context.Background(), hc)
	require.NoError(t, err)
	assert.Empty(t, hc.Control.JumpTarget)
}

func TestConditionIfHandler_FalseJumpsToElse(t *testing.T) {
	ctx, nodes := buildConditionBlock(false)
	hc := newHC(nodes[0], nodes, 0, ctx)

	_, err := ConditionIfHandler{}.Execute(context.Background(), hc)
	require.NoError(t, err)
	assert.Equal(t, "else1", hc.Control.JumpTarget)
}

func TestConditionIfHandler_FalseJumpsToEndWhenNoElse(t *testing.T) {
	ctx := engine.NewExecutionContext("", 10, 60)
	ctx.SetVariable("text", "nope")
	nodes := []*models.Node{
		newNode("if1", models.NodeTypeConditionIf, "c1", map[string]interface{}{
			"variable": "text", "condition_type": "keyword", "keywords": []interface{}{"yes"},
		}),
		newNode("body", models.NodeTypeOutput, "", map[string]interface{}{}),
		newNode("end1", models.NodeTypeConditionEnd, "c1", map[string]interface{}{}),
	}
	hc := newHC(nodes[0], nodes, 0, ctx)

	_, err := ConditionIfHandler{}.Execute(context.Background(), hc)
	require.NoError(t, err)
	assert.Equal(t, "end1", hc.Control.JumpTarget)
}

func TestConditionElseHandler_SkipsWhenIfWasTrue(t *testing.T) {
	ctx, nodes := buildConditionBlock(true)
	ifHC := newHC(nodes[0], nodes, 0, ctx)
	_, err := ConditionIfHandler{}.Execute(context.Background(), ifHC)
	require.NoError(t, err)

	elseHC := newHC(nodes[2], nodes, 2, ctx)
	_, err = ConditionElseHandler{}.Execute(context.Background(), elseHC)
	require.NoError(t, err)
	assert.Equal(t, "end1", elseHC.Control.JumpTarget)
}

func TestConditionEndHandler_PassesThroughLastOutput(t *testing.T) {
	ctx := engine.NewExecutionContext("", 10, 60)
	ctx.CompleteNode("body", "body output", nowForTest())
	node := newNode("end1", models.NodeTypeConditionEnd, "c1", map[string]interface{}{})
	hc := newHC(node, []*models.Node{node}, 0, ctx)

	res, err := ConditionEndHandler{}.Execute(context.Background(), hc)
	require.NoError(t, err)
	assert.Equal(t, "body output", res.Output)
}
