// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package cache provides a size bounded in-memory LRU store for proxied responses.
// The store is keyed by the raw request URI and holds opaque response bytes.
package cache

import (
	"container/list"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/saucelabs/cacheproxy/log"
)

const (
	DefaultMaxSize       = 1049000
	DefaultMaxObjectSize = 102400
)

type Config struct {
	// MaxSize is the total number of bytes the store may hold across all entries.
	MaxSize int64

	// MaxObjectSize is the size of the largest object that may be stored.
	// Larger objects are never inserted.
	MaxObjectSize int64
}

func DefaultConfig() *Config {
	return &Config{
		MaxSize:       DefaultMaxSize,
		MaxObjectSize: DefaultMaxObjectSize,
	}
}

func (c *Config) Validate() error {
	if c.MaxSize <= 0 {
		return errors.New("max size must be positive")
	}
	if c.MaxObjectSize <= 0 {
		return errors.New("max object size must be positive")
	}
	if c.MaxObjectSize > c.MaxSize {
		return fmt.Errorf("max object size %d exceeds max size %d", c.MaxObjectSize, c.MaxSize)
	}
	return nil
}

type Option func(*Store)

// WithPrometheus registers the store metrics with r using the given namespace.
func WithPrometheus(r prometheus.Registerer, namespace string) Option {
	return func(s *Store) {
		s.metrics = newMetrics(r, namespace)
	}
}

// WithLogger sets the logger used to report evictions.
func WithLogger(l log.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

type entry struct {
	uri  string
	data []byte
}

// Store is an LRU cache bounded by the total size of the stored objects.
// All operations, including lookups, take the same exclusive lock
// because a hit moves the entry to the front of the recency list.
type Store struct {
	config  Config
	metrics *metrics
	log     log.Logger

	mu    sync.Mutex
	ll    *list.List
	items map[string]*list.Element
	size  int64
}

func New(cfg *Config, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Store{
		config: *cfg,
		ll:     list.New(),
		items:  make(map[string]*list.Element),
		log:    log.NopLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = newMetrics(nil, "")
	}

	return s, nil
}

// Lookup returns a copy of the bytes stored under uri.
// A hit makes the entry the most recently used one.
func (s *Store) Lookup(uri string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[uri]
	if !ok {
		s.metrics.miss()
		return nil, false
	}
	s.ll.MoveToFront(el)
	s.metrics.hit()

	e := el.Value.(*entry) //nolint:forcetypeassert // only *entry is stored
	return append([]byte(nil), e.data...), true
}

// Insert stores a copy of data under uri as the most recently used entry
// and evicts least recently used entries until the store fits MaxSize.
// Objects larger than MaxObjectSize are rejected and false is returned.
// Inserting an existing uri replaces its data.
func (s *Store) Insert(uri string, data []byte) bool {
	n := int64(len(data))
	if n > s.config.MaxObjectSize {
		s.metrics.reject()
		return false
	}

	b := append([]byte(nil), data...)

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[uri]; ok {
		e := el.Value.(*entry) //nolint:forcetypeassert // only *entry is stored
		s.size += n - int64(len(e.data))
		e.data = b
		s.ll.MoveToFront(el)
	} else {
		s.items[uri] = s.ll.PushFront(&entry{uri: uri, data: b})
		s.size += n
	}
	s.metrics.insert()

	s.evict()
	s.metrics.update(s.ll.Len(), s.size)

	return true
}

// evict must be called with s.mu held.
func (s *Store) evict() {
	for s.size > s.config.MaxSize && s.ll.Len() > 0 {
		el := s.ll.Back()
		e := s.ll.Remove(el).(*entry) //nolint:forcetypeassert // only *entry is stored
		delete(s.items, e.uri)
		s.size -= int64(len(e.data))
		s.metrics.evict()
		s.log.Debugf("evicted %s, %d bytes", e.uri, len(e.data))
	}
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ll.Len()
}

// Size returns the total number of bytes stored.
func (s *Store) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Keys returns the stored URIs from the most to the least recently used.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys()
}

func (s *Store) keys() []string {
	keys := make([]string, 0, s.ll.Len())
	for el := s.ll.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry).uri) //nolint:forcetypeassert // only *entry is stored
	}
	return keys
}

type Stats struct {
	Entries       int      `json:"entries"`
	Size          int64    `json:"size"`
	MaxSize       int64    `json:"max_size"`
	MaxObjectSize int64    `json:"max_object_size"`
	Keys          []string `json:"keys"`
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Entries:       s.ll.Len(),
		Size:          s.size,
		MaxSize:       s.config.MaxSize,
		MaxObjectSize: s.config.MaxObjectSize,
		Keys:          s.keys(),
	}
}

func (s *Store) Config() Config {
	return s.config
}
