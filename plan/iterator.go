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

package plan

import (
	"context"

	"github.com/apache/arrow/go/v8/arrow"
)

// BatchTransform produces an output batch from an input batch. The input
// stays owned by the upstream iterator; the output is owned by the
// caller.
type BatchTransform func(arrow.Record) (arrow.Record, error)

// CloseableBatchIterator applies a transform to every batch of an input
// iterator while keeping at most one output batch alive. The previous
// output is released before anything else happens in HasNext and Next,
// and Close releases the batch still held when the consumer stops early.
//
// ctx is checked before each batch is produced; once it is done the
// iterator releases its batch and stops with ctx.Err().
type CloseableBatchIterator struct {
	ctx   context.Context
	input BatchIterator
	fn    BatchTransform

	cur arrow.Record
	err error
}

func NewCloseableBatchIterator(ctx context.Context, input BatchIterator, fn BatchTransform) *CloseableBatchIterator {
	return &CloseableBatchIterator{ctx: ctx, input: input, fn: fn}
}

func (it *CloseableBatchIterator) closeCurrent() {
	if it.cur != nil {
		it.cur.Release()
		it.cur = nil
	}
}

func (it *CloseableBatchIterator) HasNext() bool {
	it.closeCurrent()
	if it.err != nil {
		return false
	}

	if err := it.ctx.Err(); err != nil {
		it.err = err
		return false
	}

	if !it.input.HasNext() {
		it.err = it.input.Err()
		return false
	}
	return true
}

func (it *CloseableBatchIterator) Next() (arrow.Record, error) {
	it.closeCurrent()
	if it.err != nil {
		return nil, it.err
	}

	if err := it.ctx.Err(); err != nil {
		it.err = err
		return nil, err
	}

	batch, err := it.input.Next()
	if err != nil {
		it.err = err
		return nil, err
	}

	out, err := it.fn(batch)
	if err != nil {
		it.err = err
		return nil, err
	}

	it.cur = out
	return out, nil
}

func (it *CloseableBatchIterator) Err() error { return it.err }

// Close releases the batch currently held, if any. It is safe to call
// more than once.
func (it *CloseableBatchIterator) Close() { it.closeCurrent() }

type recordIterator struct {
	recs []arrow.Record
	pos  int
}

func (r *recordIterator) HasNext() bool { return r.pos < len(r.recs) }
func (r *recordIterator) Err() error    { return nil }

func (r *recordIterator) Next() (arrow.Record, error) {
	if r.pos >= len(r.recs) {
		return nil, errExhausted
	}
	rec := r.recs[r.pos]
	r.pos++
	return rec, nil
}

// NewRecordIterator iterates over recs without taking ownership of them.
func NewRecordIterator(recs []arrow.Record) BatchIterator {
	return &recordIterator{recs: recs}
}
