package match

import (
	"container/list"
	"sync"
)

// programCache is a thread-safe LRU of compiled programs keyed by expression
type programCache struct {
	size      int
	evictList *list.List
	items     map[string]*list.Element
	mu        sync.Mutex
}

type cacheEntry struct {
	expression string
	program    *Program
}

func newProgramCache(size int) *programCache {
	return &programCache{
		size:      size,
		evictList: list.New(),
		items:     make(map[string]*list.Element),
	}
}

// Get returns the cached program and marks it as recently used
func (c *programCache) Get(expression string) (*Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, exists := c.items[expression]
	if !exists {
		return nil, false
	}
	c.evictList.MoveToFront(node)
	return node.Value.(*cacheEntry).program, true
}

// Put adds or replaces a program, evicting the least recently used one when full
func (c *programCache) Put(expression string, program *Program) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if node, exists := c.items[expression]; exists {
		c.evictList.MoveToFront(node)
		node.Value.(*cacheEntry).program = program
		return
	}

	c.items[expression] = c.evictList.PushFront(&cacheEntry{expression: expression, program: program})

	if c.evictList.Len() > c.size {
		oldest := c.evictList.Back()
		c.evictList.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).expression)
	}
}

func (c *programCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.evictList.Init()
}

func (c *programCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.evictList.Len()
}
