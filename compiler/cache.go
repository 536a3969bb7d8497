package compiler

import (
	"crypto/sha256"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/helixlab/helix/vm"
)

// Cache memoizes tokenization by source digest. Editor servers re-check the
// same document on every keystroke; the cache makes repeat checks of an
// unchanged source free.
type Cache struct {
	mu  sync.Mutex
	lru *simplelru.LRU[[32]byte, []vm.Token]
}

// NewCache creates a cache holding up to size tokenized sources.
func NewCache(size int) (*Cache, error) {
	lru, err := simplelru.NewLRU[[32]byte, []vm.Token](size, nil)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: lru}, nil
}

// Tokenize is Tokenize with memoization. Callers must treat the returned
// slice as read-only; it is shared between hits.
func (c *Cache) Tokenize(source string) ([]vm.Token, error) {
	key := sha256.Sum256([]byte(source))

	c.mu.Lock()
	if tokens, ok := c.lru.Get(key); ok {
		c.mu.Unlock()
		return tokens, nil
	}
	c.mu.Unlock()

	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.lru.Add(key, tokens)
	c.mu.Unlock()
	return tokens, nil
}

// Len returns the number of cached sources.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
