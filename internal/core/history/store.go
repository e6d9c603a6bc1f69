// Copyright 2025 YishanCoding
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package history keeps append-only snapshots of completed campaign
// sessions. Snapshots are value-independent: the store clones on the way
// in and on the way out, so later mutations of working state never reach
// a stored snapshot and vice versa.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/model"
)

// Store holds campaign snapshots, newest first.
type Store struct {
	mu    sync.Mutex
	items []*model.HistoryItem
	cap   int
}

// NewStore creates a store keeping at most capacity snapshots; zero or
// negative means unbounded.
func NewStore(capacity int) *Store {
	return &Store{cap: capacity}
}

// Append stores a deep copy of the snapshot at the head of the list,
// assigning it a fresh ID and timestamp, and returns the stored copy's
// metadata-bearing clone. The oldest snapshot is dropped when the store
// is at capacity.
func (s *Store) Append(item *model.HistoryItem) *model.HistoryItem {
	stored := item.Clone()
	stored.ID = uuid.NewString()
	stored.Timestamp = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]*model.HistoryItem{stored}, s.items...)
	if s.cap > 0 && len(s.items) > s.cap {
		s.items = s.items[:s.cap]
	}
	return stored.Clone()
}

// Items returns clones of every snapshot, newest first.
func (s *Store) Items() []*model.HistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.HistoryItem, len(s.items))
	for i, item := range s.items {
		out[i] = item.Clone()
	}
	return out
}

// Get returns a clone of the snapshot with the given ID.
func (s *Store) Get(id string) (*model.HistoryItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ID == id {
			return item.Clone(), true
		}
	}
	return nil, false
}

// Len reports the number of stored snapshots.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
