// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package task holds the per-partition state of a running query: the
// partition being processed, its cancellation, and the cleanup callbacks
// that must run when the partition finishes.
package task

import (
	"context"
	"sync"
)

// Context is the state of one task. A task processes exactly one
// partition on a single goroutine.
type Context struct {
	ctx       context.Context
	cancel    context.CancelFunc
	partition int

	mu        sync.Mutex
	listeners []func()
	completed bool
}

func New(parent context.Context, partition int) *Context {
	ctx, cancel := context.WithCancel(parent)
	return &Context{ctx: ctx, cancel: cancel, partition: partition}
}

// Context returns the cancellation token for the task. It is done once
// the task is cancelled or completed.
func (t *Context) Context() context.Context { return t.ctx }
func (t *Context) Partition() int           { return t.partition }

// Cancel signals the task to stop. Completion listeners still run when
// the task is marked completed.
func (t *Context) Cancel() { t.cancel() }

// AddCompletionListener registers fn to run when the task completes,
// whether it succeeded, failed or was cancelled. If the task already
// completed fn runs immediately.
func (t *Context) AddCompletionListener(fn func()) {
	t.mu.Lock()
	if !t.completed {
		t.listeners = append(t.listeners, fn)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	fn()
}

// MarkCompleted runs the completion listeners in reverse order of
// registration. Only the first call has an effect.
func (t *Context) MarkCompleted() {
	t.mu.Lock()
	if t.completed {
		t.mu.Unlock()
		return
	}
	t.completed = true
	listeners := t.listeners
	t.listeners = nil
	t.mu.Unlock()

	for i := len(listeners) - 1; i >= 0; i-- {
		listeners[i]()
	}
	t.cancel()
}

func (t *Context) IsCompleted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}
