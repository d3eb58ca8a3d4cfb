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

package plan_test

import (
	"context"
	"errors"
	"testing"

	"github.com/apache/arrow/go/v8/arrow"
	"github.com/apache/arrow/go/v8/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeroshade/colexec/plan"
)

// countedRecord counts how often the iterator releases it.
type countedRecord struct {
	arrow.Record
	releases *int
}

func (c *countedRecord) Release() {
	*c.releases++
	c.Record.Release()
}

func batchInputs(mem memory.Allocator, n int) []arrow.Record {
	out := make([]arrow.Record, n)
	for i := range out {
		out[i] = makeRecord(mem, int64(i))
	}
	return out
}

func releaseAll(recs []arrow.Record) {
	for _, r := range recs {
		r.Release()
	}
}

func countingTransform(mem memory.Allocator, releases *int) plan.BatchTransform {
	return func(in arrow.Record) (arrow.Record, error) {
		return &countedRecord{Record: makeRecord(mem, in.NumRows()), releases: releases}, nil
	}
}

func TestCloseableBatchIteratorReleasesEveryBatch(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	const n = 5
	inputs := batchInputs(mem, n)
	defer releaseAll(inputs)

	releases := 0
	it := plan.NewCloseableBatchIterator(context.Background(), plan.NewRecordIterator(inputs), countingTransform(mem, &releases))

	produced := 0
	for it.HasNext() {
		_, err := it.Next()
		require.NoError(t, err)
		produced++
		assert.Equal(t, produced-1, releases, "only the previous batch is released")
	}
	require.NoError(t, it.Err())
	assert.Equal(t, n, produced)
	assert.Equal(t, n, releases)

	it.Close()
	assert.Equal(t, n, releases)
}

func TestCloseableBatchIteratorEarlyClose(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	inputs := batchInputs(mem, 4)
	defer releaseAll(inputs)

	releases := 0
	it := plan.NewCloseableBatchIterator(context.Background(), plan.NewRecordIterator(inputs), countingTransform(mem, &releases))
	for i := 0; i < 2; i++ {
		require.True(t, it.HasNext())
		_, err := it.Next()
		require.NoError(t, err)
	}

	it.Close()
	it.Close()
	assert.Equal(t, 2, releases)
}

func TestCloseableBatchIteratorCancel(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	inputs := batchInputs(mem, 3)
	defer releaseAll(inputs)

	ctx, cancel := context.WithCancel(context.Background())
	releases := 0
	it := plan.NewCloseableBatchIterator(ctx, plan.NewRecordIterator(inputs), countingTransform(mem, &releases))

	require.True(t, it.HasNext())
	_, err := it.Next()
	require.NoError(t, err)

	cancel()
	assert.False(t, it.HasNext())
	assert.Equal(t, 1, releases)
	assert.ErrorIs(t, it.Err(), context.Canceled)

	_, err = it.Next()
	assert.ErrorIs(t, err, context.Canceled)
	it.Close()
	assert.Equal(t, 1, releases)
}

func TestCloseableBatchIteratorTransformError(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	inputs := batchInputs(mem, 2)
	defer releaseAll(inputs)

	boom := errors.New("boom")
	it := plan.NewCloseableBatchIterator(context.Background(), plan.NewRecordIterator(inputs),
		func(arrow.Record) (arrow.Record, error) { return nil, boom })

	require.True(t, it.HasNext())
	_, err := it.Next()
	assert.ErrorIs(t, err, boom)
	assert.False(t, it.HasNext())
	assert.ErrorIs(t, it.Err(), boom)
}
