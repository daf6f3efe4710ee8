package router

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/localcmd/assistant/internal/llm"
)

// toolFilterCacheSize bounds the number of distinct (agent, revision) tool
// lists the LLM fallback keeps ready to hand the provider. A bound this
// small is deliberate: distinct keys only grow when an agent's identity
// changes or the registry's revision bumps (a plugin load, typically), not per
// request, so eviction pressure stays low under normal operation.
const toolFilterCacheSize = 50

// toolFilterCacheEntry is one (agentName, revision) → filtered tool
// definition list, ready to pass straight to an LLMProvider.
type toolFilterCacheEntry struct {
	key   string
	tools []llm.ToolDefinition
}

// toolFilterCache is a bounded FIFO cache keyed on (agent name,
// registry revision): the filtered tool list for an agent only changes
// when either the agent's own toolset or the registry's contents change,
// and Registry.Revision() already bumps on every registration change, so
// keying on it gives free invalidation without an explicit Invalidate
// call. Structurally this plays the same role as agent.ReadCache, but
// evicts by insertion order (container/list) instead of never evicting,
// since the key space here is unbounded over a long-running process
// (every distinct agent name the router ever sees adds an entry).
type toolFilterCache struct {
	mu       sync.Mutex
	order    *list.List // front = most recently inserted; lookups never reorder
	elements map[string]*list.Element
}

func newToolFilterCache() *toolFilterCache {
	return &toolFilterCache{
		order:    list.New(),
		elements: make(map[string]*list.Element),
	}
}

func toolFilterCacheKey(agentName string, revision uint64) string {
	return fmt.Sprintf("%s@%d", agentName, revision)
}

func (c *toolFilterCache) get(key string) ([]llm.ToolDefinition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.elements[key]
	if !ok {
		return nil, false
	}
	return el.Value.(*toolFilterCacheEntry).tools, true
}

func (c *toolFilterCache) put(key string, tools []llm.ToolDefinition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.elements[key]; ok {
		el.Value.(*toolFilterCacheEntry).tools = tools
		return
	}
	el := c.order.PushFront(&toolFilterCacheEntry{key: key, tools: tools})
	c.elements[key] = el
	for c.order.Len() > toolFilterCacheSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.elements, oldest.Value.(*toolFilterCacheEntry).key)
	}
}
