// Copyright 2019 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cart

import (
	"context"
	"fmt"
	"net/url"
	"sync"
)

// Vars are the persisted variables of one session.
type Vars map[string]string

// Store persists session variables.
type Store interface {
	// Load returns the variables of session id.  An unknown session has no
	// variables and is not an error.
	Load(ctx context.Context, id string) (Vars, error)
	// Modify applies fn to the variables of session id, saves them and
	// returns the saved variables.  No other Modify of the same session takes
	// effect between the load and the save.
	Modify(ctx context.Context, id string, fn func(Vars)) (Vars, error)
}

// Update applies updates to the stored variables of session id and returns
// the result.  The last value given for a name wins.
func Update(ctx context.Context, store Store, id string, updates url.Values) (Vars, error) {
	if len(updates) == 0 {
		vars, err := store.Load(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("loading session: %w", err)
		}
		return vars, nil
	}
	vars, err := store.Modify(ctx, id, func(vars Vars) {
		for name, values := range updates {
			if name == SessionParam || len(values) == 0 {
				continue
			}
			vars[name] = values[len(values)-1]
		}
	})
	if err != nil {
		return nil, fmt.Errorf("updating session: %w", err)
	}
	return vars, nil
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Vars
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Vars)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, id string) (Vars, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions[id].clone(), nil
}

// Modify implements Store.
func (s *MemoryStore) Modify(_ context.Context, id string, fn func(Vars)) (Vars, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vars := s.sessions[id].clone()
	fn(vars)
	s.sessions[id] = vars.clone()
	return vars, nil
}

func (v Vars) clone() Vars {
	copied := make(Vars, len(v))
	for k, value := range v {
		copied[k] = value
	}
	return copied
}
