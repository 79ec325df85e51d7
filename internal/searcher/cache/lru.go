package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRU is an in-process Backend with a fixed entry count. Entries expire
// after the TTL given at construction; the per-call ttl is ignored.
type LRU struct {
	entries *expirable.LRU[string, []byte]
}

func NewLRU(size int, ttl time.Duration) *LRU {
	if size <= 0 {
		size = 1024
	}
	return &LRU{entries: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (l *LRU) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := l.entries.Get(key)
	return v, ok, nil
}

func (l *LRU) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	l.entries.Add(key, value)
	return nil
}

func (l *LRU) DeleteByPrefix(_ context.Context, prefix string) (int64, error) {
	var n int64
	for _, k := range l.entries.Keys() {
		if strings.HasPrefix(k, prefix) && l.entries.Remove(k) {
			n++
		}
	}
	return n, nil
}

func (l *LRU) Len() int {
	return l.entries.Len()
}
