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

package expr

import (
	"github.com/apache/arrow/go/v8/arrow"
	"github.com/zeroshade/colexec/compute"
	"github.com/zeroshade/colexec/compute/kernels"
	"golang.org/x/xerrors"
)

// ColumnarLiteral evaluates to a scalar for every batch.
type ColumnarLiteral struct{ Literal }

func (*ColumnarLiteral) Kind() Kind { return KindColumnarLiteral }

func (c *ColumnarLiteral) WithNewChildren([]Expression) Expression { return c }

func (c *ColumnarLiteral) Equals(other Expression) bool {
	rhs, ok := other.(*ColumnarLiteral)
	return ok && c.Literal.Equals(&rhs.Literal)
}

// ColumnarAttributeReference is an attribute inside a columnar
// expression. It has to be bound before it can be evaluated.
type ColumnarAttributeReference struct{ AttributeReference }

func (*ColumnarAttributeReference) Kind() Kind { return KindColumnarAttributeReference }

func (c *ColumnarAttributeReference) WithNewChildren([]Expression) Expression { return c }

func (c *ColumnarAttributeReference) Equals(other Expression) bool {
	rhs, ok := other.(*ColumnarAttributeReference)
	return ok && c.AttributeReference.sameAs(&rhs.AttributeReference)
}

// ColumnarBoundReference evaluates to the column at its ordinal.
type ColumnarBoundReference struct{ BoundReference }

func (*ColumnarBoundReference) Kind() Kind { return KindColumnarBoundReference }

func (c *ColumnarBoundReference) WithNewChildren([]Expression) Expression { return c }

func (c *ColumnarBoundReference) Equals(other Expression) bool {
	rhs, ok := other.(*ColumnarBoundReference)
	return ok && c.BoundReference.Equals(&rhs.BoundReference)
}

type ColumnarAlias struct{ Alias }

func (*ColumnarAlias) Kind() Kind { return KindColumnarAlias }

func (c *ColumnarAlias) WithNewChildren(children []Expression) Expression {
	out := *c
	out.child = children[0]
	return &out
}

func (c *ColumnarAlias) Equals(other Expression) bool {
	rhs, ok := other.(*ColumnarAlias)
	return ok && c.Alias.sameAs(&rhs.Alias)
}

// ColumnarAdd adds its operands with the vectorized add kernel.
type ColumnarAdd struct{ Add }

func (*ColumnarAdd) Kind() Kind { return KindColumnarAdd }

func (c *ColumnarAdd) WithNewChildren(children []Expression) Expression {
	return &ColumnarAdd{Add{left: children[0], right: children[1]}}
}

func (c *ColumnarAdd) Equals(other Expression) bool {
	rhs, ok := other.(*ColumnarAdd)
	return ok && c.Add.Equals(&rhs.Add)
}

func (c *ColumnarAdd) columnarEval(ectx *compute.ExecCtx, batch arrow.Record) (compute.Datum, error) {
	left, err := ColumnarEval(ectx, c.left, batch)
	if err != nil {
		return nil, err
	}
	defer left.Release()

	right, err := ColumnarEval(ectx, c.right, batch)
	if err != nil {
		return nil, err
	}
	defer right.Release()

	if left.Kind() == compute.KindScalar && right.Kind() == compute.KindScalar {
		return c.evalScalars(left.(*compute.ScalarDatum), right.(*compute.ScalarDatum))
	}
	return kernels.Add(ectx, left, right, batch.NumRows())
}

// evalScalars takes the row-wise path; no vectors are involved.
func (c *ColumnarAdd) evalScalars(left, right *compute.ScalarDatum) (compute.Datum, error) {
	lv, err := ValueOfScalar(left.Value)
	if err != nil {
		return nil, err
	}
	rv, err := ValueOfScalar(right.Value)
	if err != nil {
		return nil, err
	}

	sum, err := addValues(lv, rv)
	if err != nil {
		return nil, err
	}

	s, err := ScalarOf(sum, c.Type())
	if err != nil {
		return nil, err
	}
	return &compute.ScalarDatum{Value: s}, nil
}

// NewColumnarBoundReference returns a columnar reference to the input
// column at ordinal.
func NewColumnarBoundReference(ordinal int, dt arrow.DataType, nullable bool) *ColumnarBoundReference {
	return &ColumnarBoundReference{BoundReference{ordinal: ordinal, dt: dt, nullable: nullable}}
}

// SupportsColumnar reports whether e can be evaluated over a whole batch.
// Composite expressions support it only if all their children do.
func SupportsColumnar(e Expression) bool {
	switch e := e.(type) {
	case *ColumnarLiteral, *ColumnarAttributeReference, *ColumnarBoundReference:
		return true
	case *ColumnarAlias:
		return SupportsColumnar(e.child)
	case *ColumnarAdd:
		return SupportsColumnar(e.left) && SupportsColumnar(e.right)
	case *Literal, *AttributeReference, *BoundReference, *Alias, *Add, *ScalarFunction:
		return false
	}
	return false
}

// ColumnarEval evaluates e over batch. The result is either a vector with
// one entry per row or a scalar; the caller owns it and must release it.
func ColumnarEval(ectx *compute.ExecCtx, e Expression, batch arrow.Record) (compute.Datum, error) {
	switch e := e.(type) {
	case *ColumnarLiteral:
		s, err := ScalarOf(e.value, e.dt)
		if err != nil {
			return nil, err
		}
		return &compute.ScalarDatum{Value: s}, nil
	case *ColumnarBoundReference:
		if e.ordinal < 0 || e.ordinal >= int(batch.NumCols()) {
			return nil, xerrors.Errorf("%w: ordinal %d out of range for batch with %d columns",
				compute.ErrInvalid, e.ordinal, batch.NumCols())
		}
		col := batch.Column(e.ordinal)
		if !arrow.TypeEqual(col.DataType(), e.dt) {
			return nil, xerrors.Errorf("%w: column %d is %s, expected %s",
				compute.ErrTypeMismatch, e.ordinal, col.DataType(), e.dt)
		}
		// the batch keeps its own reference, the caller releases this one
		col.Retain()
		return &compute.ArrayDatum{Value: col}, nil
	case *ColumnarAttributeReference:
		return nil, xerrors.Errorf("%w: cannot evaluate unbound attribute %s", compute.ErrUnboundReference, e)
	case *ColumnarAlias:
		return ColumnarEval(ectx, e.child, batch)
	case *ColumnarAdd:
		return e.columnarEval(ectx, batch)
	case *Literal, *AttributeReference, *BoundReference, *Alias, *Add, *ScalarFunction:
	}
	return nil, xerrors.Errorf("%w: %s has no columnar evaluation", compute.ErrUnsupportedOperation, e.Kind())
}

var (
	_ NamedExpression = (*ColumnarAttributeReference)(nil)
	_ NamedExpression = (*ColumnarAlias)(nil)
	_ Expression      = (*ColumnarLiteral)(nil)
	_ Expression      = (*ColumnarBoundReference)(nil)
	_ Expression      = (*ColumnarAdd)(nil)
)
