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

// Package cart implements the session variable ("cart") contract: the client
// queue of pending name=value updates, the HTTP client that flushes them, and
// the server-side stores that persist them.
package cart

import (
	"net/url"
	"sort"
)

// Queue collects pending cart updates.  Setting a name twice keeps only the
// last value, in the position of the first.
type Queue struct {
	names  []string
	values map[string]string
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{values: make(map[string]string)}
}

// Set queues name=value.
func (q *Queue) Set(name, value string) {
	if _, ok := q.values[name]; !ok {
		q.names = append(q.names, name)
	}
	q.values[name] = value
}

// SetAll queues every entry of vars in name order.
func (q *Queue) SetAll(vars map[string]string) {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		q.Set(name, vars[name])
	}
}

// Len returns the number of pending names.
func (q *Queue) Len() int {
	return len(q.names)
}

// Get returns the pending value of name.
func (q *Queue) Get(name string) (string, bool) {
	v, ok := q.values[name]
	return v, ok
}

// Encode appends the pending updates to params without draining the queue.
func (q *Queue) Encode(params url.Values) {
	for _, name := range q.names {
		params.Set(name, q.values[name])
	}
}

// Drain returns the pending updates and empties the queue.
func (q *Queue) Drain() url.Values {
	params := make(url.Values, len(q.names))
	q.Encode(params)
	q.names = nil
	q.values = make(map[string]string)
	return params
}
