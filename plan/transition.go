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
	"github.com/apache/arrow/go/v8/arrow"
	"github.com/apache/arrow/go/v8/arrow/array"
	"github.com/zeroshade/colexec/compute"
	"github.com/zeroshade/colexec/expr"
	"github.com/zeroshade/colexec/task"
	"golang.org/x/xerrors"
)

// RowToColumnar gathers the rows of its child into batches of at most
// ExecCtx.BatchSize rows.
type RowToColumnar struct {
	Child Node
}

func (r *RowToColumnar) String() string            { return "RowToColumnar" }
func (r *RowToColumnar) Children() []Node          { return []Node{r.Child} }
func (r *RowToColumnar) Output() expr.AttributeSeq { return r.Child.Output() }
func (r *RowToColumnar) NumPartitions() int        { return r.Child.NumPartitions() }
func (*RowToColumnar) SupportsColumnar() bool      { return true }
func (*RowToColumnar) SupportsRows() bool          { return false }

func (r *RowToColumnar) WithNewChildren(children []Node) Node {
	return &RowToColumnar{Child: children[0]}
}

func (r *RowToColumnar) Equals(other Node) bool {
	rhs, ok := other.(*RowToColumnar)
	return ok && r.Child.Equals(rhs.Child)
}

func (r *RowToColumnar) Execute(*task.Context, int) (RowIterator, error) {
	return nil, xerrors.Errorf("%w: %s cannot produce rows", compute.ErrUnsupportedOperation, r)
}

func (r *RowToColumnar) ExecuteColumnar(tctx *task.Context, partition int) (BatchIterator, error) {
	input, err := r.Child.Execute(tctx, partition)
	if err != nil {
		return nil, err
	}

	ectx := compute.GetExecCtx(tctx.Context())
	batchSize := ectx.BatchSize
	if batchSize <= 0 {
		batchSize = compute.DefaultBatchSize
	}

	it := &rowBatchIterator{
		tctx:      tctx,
		input:     input,
		bldr:      array.NewRecordBuilder(ectx.Mem, schemaOf(r.Output())),
		batchSize: batchSize,
	}
	tctx.AddCompletionListener(it.Close)
	return it, nil
}

type rowBatchIterator struct {
	tctx      *task.Context
	input     RowIterator
	bldr      *array.RecordBuilder
	batchSize int64

	cur arrow.Record
	err error
}

func (it *rowBatchIterator) closeCurrent() {
	if it.cur != nil {
		it.cur.Release()
		it.cur = nil
	}
}

func (it *rowBatchIterator) HasNext() bool {
	it.closeCurrent()
	if it.err != nil {
		return false
	}
	if err := it.tctx.Context().Err(); err != nil {
		it.err = err
		return false
	}
	if !it.input.HasNext() {
		it.err = it.input.Err()
		return false
	}
	return true
}

func (it *rowBatchIterator) Next() (arrow.Record, error) {
	it.closeCurrent()
	if it.err != nil {
		return nil, it.err
	}
	if err := it.tctx.Context().Err(); err != nil {
		it.err = err
		return nil, err
	}

	fields := it.bldr.Fields()
	for n := int64(0); n < it.batchSize && it.input.HasNext(); n++ {
		row, err := it.input.Next()
		if err == nil && len(row) != len(fields) {
			err = xerrors.Errorf("%w: row has %d values, expected %d", compute.ErrInvalid, len(row), len(fields))
		}
		for i := 0; err == nil && i < len(fields); i++ {
			err = expr.AppendValue(fields[i], row[i])
		}
		if err != nil {
			it.err = err
			// discard the partial batch
			it.bldr.NewRecord().Release()
			return nil, err
		}
	}

	if err := it.input.Err(); err != nil {
		it.err = err
		it.bldr.NewRecord().Release()
		return nil, err
	}

	it.cur = it.bldr.NewRecord()
	return it.cur, nil
}

func (it *rowBatchIterator) Err() error { return it.err }

// Close releases the current batch and the builder. It is safe to call
// more than once.
func (it *rowBatchIterator) Close() {
	it.closeCurrent()
	if it.bldr != nil {
		it.bldr.Release()
		it.bldr = nil
	}
}

// ColumnarToRow reads the batches of its child one row at a time.
type ColumnarToRow struct {
	Child Node
}

func (c *ColumnarToRow) String() string            { return "ColumnarToRow" }
func (c *ColumnarToRow) Children() []Node          { return []Node{c.Child} }
func (c *ColumnarToRow) Output() expr.AttributeSeq { return c.Child.Output() }
func (c *ColumnarToRow) NumPartitions() int        { return c.Child.NumPartitions() }
func (*ColumnarToRow) SupportsColumnar() bool      { return false }
func (*ColumnarToRow) SupportsRows() bool          { return true }

func (c *ColumnarToRow) WithNewChildren(children []Node) Node {
	return &ColumnarToRow{Child: children[0]}
}

func (c *ColumnarToRow) Equals(other Node) bool {
	rhs, ok := other.(*ColumnarToRow)
	return ok && c.Child.Equals(rhs.Child)
}

func (c *ColumnarToRow) ExecuteColumnar(*task.Context, int) (BatchIterator, error) {
	return nil, xerrors.Errorf("%w: %s cannot produce batches", compute.ErrUnsupportedOperation, c)
}

func (c *ColumnarToRow) Execute(tctx *task.Context, partition int) (RowIterator, error) {
	input, err := c.Child.ExecuteColumnar(tctx, partition)
	if err != nil {
		return nil, err
	}
	return &batchRowIterator{input: input}, nil
}

// batchRowIterator turns a batch iterator into rows. Each row is copied
// out of the batch, so moving on to the next batch is safe.
type batchRowIterator struct {
	input BatchIterator
	cur   arrow.Record
	pos   int64
	err   error
}

func (it *batchRowIterator) HasNext() bool {
	for it.cur == nil || it.pos >= it.cur.NumRows() {
		it.cur = nil
		if it.err != nil || !it.input.HasNext() {
			if it.err == nil {
				it.err = it.input.Err()
			}
			return false
		}

		rec, err := it.input.Next()
		if err != nil {
			it.err = err
			return false
		}
		it.cur, it.pos = rec, 0
	}
	return true
}

func (it *batchRowIterator) Next() (expr.Row, error) {
	if !it.HasNext() {
		if it.err != nil {
			return nil, it.err
		}
		return nil, errExhausted
	}

	row := make(expr.Row, it.cur.NumCols())
	for i, col := range it.cur.Columns() {
		v, err := expr.ValueAt(col, int(it.pos))
		if err != nil {
			it.err = err
			return nil, err
		}
		row[i] = v
	}
	it.pos++
	return row, nil
}

func (it *batchRowIterator) Err() error { return it.err }
