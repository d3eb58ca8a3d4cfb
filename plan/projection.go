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

// Projection evaluates a list of named expressions for every row of its
// child.
type Projection struct {
	Exprs []expr.NamedExpression
	Child Node
}

func NewProjection(exprs []expr.NamedExpression, child Node) *Projection {
	return &Projection{Exprs: exprs, Child: child}
}

func (p *Projection) String() string            { return "Project " + exprList(p.Exprs) }
func (p *Projection) Children() []Node          { return []Node{p.Child} }
func (p *Projection) Output() expr.AttributeSeq { return outputOf(p.Exprs) }
func (p *Projection) NumPartitions() int        { return p.Child.NumPartitions() }
func (*Projection) SupportsColumnar() bool      { return false }
func (*Projection) SupportsRows() bool          { return true }

func (p *Projection) WithNewChildren(children []Node) Node {
	return &Projection{Exprs: p.Exprs, Child: children[0]}
}

func (p *Projection) Equals(other Node) bool {
	rhs, ok := other.(*Projection)
	return ok && equalNamed(p.Exprs, rhs.Exprs) && p.Child.Equals(rhs.Child)
}

func (p *Projection) ExecuteColumnar(*task.Context, int) (BatchIterator, error) {
	return nil, xerrors.Errorf("%w: %s cannot produce batches", compute.ErrUnsupportedOperation, p)
}

func (p *Projection) Execute(tctx *task.Context, partition int) (RowIterator, error) {
	bound, err := bindNamed(p.Exprs, p.Child.Output())
	if err != nil {
		return nil, err
	}

	input, err := p.Child.Execute(tctx, partition)
	if err != nil {
		return nil, err
	}
	return &projectRowIterator{ctx: tctx, input: input, exprs: bound}, nil
}

func bindNamed(exprs []expr.NamedExpression, input expr.AttributeSeq) ([]expr.Expression, error) {
	list := make([]expr.Expression, len(exprs))
	for i, e := range exprs {
		list[i] = e
	}
	return expr.BindReferences(list, input, false)
}

type projectRowIterator struct {
	ctx   *task.Context
	input RowIterator
	exprs []expr.Expression
	err   error
}

func (it *projectRowIterator) HasNext() bool {
	if it.err != nil {
		return false
	}
	if err := it.ctx.Context().Err(); err != nil {
		it.err = err
		return false
	}
	if !it.input.HasNext() {
		it.err = it.input.Err()
		return false
	}
	return true
}

func (it *projectRowIterator) Next() (expr.Row, error) {
	if it.err != nil {
		return nil, it.err
	}

	in, err := it.input.Next()
	if err != nil {
		it.err = err
		return nil, err
	}

	out := make(expr.Row, len(it.exprs))
	for i, e := range it.exprs {
		if out[i], err = e.Eval(in); err != nil {
			it.err = err
			return nil, err
		}
	}
	return out, nil
}

func (it *projectRowIterator) Err() error { return it.err }

// ColumnarProjection evaluates a list of columnar expressions over every
// batch of its child.
type ColumnarProjection struct {
	Exprs []expr.NamedExpression
	Child Node
}

func NewColumnarProjection(exprs []expr.NamedExpression, child Node) *ColumnarProjection {
	return &ColumnarProjection{Exprs: exprs, Child: child}
}

func (p *ColumnarProjection) String() string            { return "ColumnarProject " + exprList(p.Exprs) }
func (p *ColumnarProjection) Children() []Node          { return []Node{p.Child} }
func (p *ColumnarProjection) Output() expr.AttributeSeq { return outputOf(p.Exprs) }
func (p *ColumnarProjection) NumPartitions() int        { return p.Child.NumPartitions() }
func (*ColumnarProjection) SupportsRows() bool          { return false }

// SupportsColumnar is true when every expression of the projection list
// has a columnar evaluation.
func (p *ColumnarProjection) SupportsColumnar() bool {
	for _, e := range p.Exprs {
		if !expr.SupportsColumnar(e) {
			return false
		}
	}
	return true
}

func (p *ColumnarProjection) WithNewChildren(children []Node) Node {
	return &ColumnarProjection{Exprs: p.Exprs, Child: children[0]}
}

func (p *ColumnarProjection) Equals(other Node) bool {
	rhs, ok := other.(*ColumnarProjection)
	return ok && equalNamed(p.Exprs, rhs.Exprs) && p.Child.Equals(rhs.Child)
}

func (p *ColumnarProjection) Execute(*task.Context, int) (RowIterator, error) {
	return nil, xerrors.Errorf("%w: %s cannot produce rows", compute.ErrUnsupportedOperation, p)
}

// ExecuteColumnar binds the projection list once and evaluates it over
// every batch of the child partition. The iterator is closed when the
// task completes.
func (p *ColumnarProjection) ExecuteColumnar(tctx *task.Context, partition int) (BatchIterator, error) {
	bound, err := bindNamed(p.Exprs, p.Child.Output())
	if err != nil {
		return nil, err
	}

	input, err := p.Child.ExecuteColumnar(tctx, partition)
	if err != nil {
		return nil, err
	}

	ectx := compute.GetExecCtx(tctx.Context())
	schema := schemaOf(p.Output())
	it := NewCloseableBatchIterator(tctx.Context(), input, func(batch arrow.Record) (arrow.Record, error) {
		return project(ectx, schema, bound, batch)
	})
	tctx.AddCompletionListener(it.Close)
	return it, nil
}

func project(ectx *compute.ExecCtx, schema *arrow.Schema, exprs []expr.Expression, batch arrow.Record) (arrow.Record, error) {
	cols := make([]arrow.Array, 0, len(exprs))
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	for _, e := range exprs {
		col, err := evalColumn(ectx, e, batch)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return array.NewRecord(schema, cols, batch.NumRows()), nil
}

func evalColumn(ectx *compute.ExecCtx, e expr.Expression, batch arrow.Record) (arrow.Array, error) {
	d, err := expr.ColumnarEval(ectx, e, batch)
	if err != nil {
		return nil, err
	}
	defer d.Release()

	switch d := d.(type) {
	case *compute.ArrayDatum:
		if d.Len() != batch.NumRows() {
			return nil, xerrors.Errorf("%w: %s produced %d values for %d rows", compute.ErrInvalid, e, d.Len(), batch.NumRows())
		}
		return d.MakeArray(), nil
	case *compute.ScalarDatum:
		return broadcast(ectx, d, e.Type(), batch.NumRows())
	}
	return nil, xerrors.Errorf("%w: %s produced %s", compute.ErrInvalid, e, d)
}

// broadcast repeats a scalar result once per row.
func broadcast(ectx *compute.ExecCtx, d *compute.ScalarDatum, dt arrow.DataType, length int64) (arrow.Array, error) {
	v, err := expr.ValueOfScalar(d.Value)
	if err != nil {
		return nil, err
	}

	bldr := array.NewBuilder(ectx.Mem, dt)
	defer bldr.Release()
	bldr.Reserve(int(length))
	for i := int64(0); i < length; i++ {
		if err := expr.AppendValue(bldr, v); err != nil {
			return nil, err
		}
	}
	return bldr.NewArray(), nil
}
