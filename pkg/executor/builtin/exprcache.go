package builtin

import (
	"container/list"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// expressionCache is a thread-safe LRU cache of compiled expr-lang
// programs, keyed by source text, so a condition re-evaluated across many
// executions (or many iterations of a loop) is compiled once.
type expressionCache struct {
	capacity int
	entries  map[string]*list.Element
	order    *list.List
	mu       sync.RWMutex
}

type expressionCacheEntry struct {
	key     string
	program *vm.Program
}

func newExpressionCache(capacity int) *expressionCache {
	if capacity <= 0 {
		capacity = 100
	}
	return &expressionCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *expressionCache) get(src string) (*vm.Program, bool) {
	// MoveToFront mutates the recency list, so a lookup needs the write lock.
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[src]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*expressionCacheEntry).program, true
	}
	return nil, false
}

func (c *expressionCache) put(src string, program *vm.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[src]; ok {
		c.order.MoveToFront(el)
		el.Value.(*expressionCacheEntry).program = program
		return
	}
	el := c.order.PushFront(&expressionCacheEntry{key: src, program: program})
	c.entries[src] = el
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*expressionCacheEntry).key)
		}
	}
}

func (c *expressionCache) compileAndRun(src string, env map[string]interface{}) (bool, error) {
	program, ok := c.get(src)
	if !ok {
		compiled, err := expr.Compile(src, expr.Env(env), expr.AsBool())
		if err != nil {
			return false, err
		}
		c.put(src, compiled)
		program = compiled
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}
	b, _ := result.(bool)
	return b, nil
}

var conditionExprCache = newExpressionCache(100)
