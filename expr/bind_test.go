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

package expr_test

import (
	"testing"

	"github.com/apache/arrow/go/v8/arrow"
	"github.com/apache/arrow/go/v8/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeroshade/colexec/compute"
	"github.com/zeroshade/colexec/expr"
)

func TestBindReferenceStrict(t *testing.T) {
	a := expr.NewAttribute("a", arrow.PrimitiveTypes.Int64, false)
	b := expr.NewAttribute("b", arrow.PrimitiveTypes.Int64, true)
	missing := expr.NewAttribute("c", arrow.PrimitiveTypes.Int64, false)

	bound, err := expr.BindReference(expr.NewAlias(expr.NewAdd(b, a), "x"), expr.AttributeSeq{a, b}, false)
	require.NoError(t, err)
	assert.True(t, bound.Children()[0].Equals(expr.NewAdd(
		expr.NewBoundReference(1, arrow.PrimitiveTypes.Int64, true),
		expr.NewBoundReference(0, arrow.PrimitiveTypes.Int64, false))))

	_, err = expr.BindReference(expr.NewAdd(a, missing), expr.AttributeSeq{a, b}, false)
	assert.ErrorIs(t, err, compute.ErrUnboundReference)
	assert.Contains(t, err.Error(), missing.String())
	assert.Contains(t, err.Error(), expr.AttributeSeq{a, b}.String())
}

func TestBindReferenceAllowFailures(t *testing.T) {
	a := expr.NewAttribute("a", arrow.PrimitiveTypes.Int64, false)
	missing := expr.NewAttribute("c", arrow.PrimitiveTypes.Int64, false)

	bound, err := expr.BindReference(expr.NewAdd(a, missing), expr.AttributeSeq{a}, true)
	require.NoError(t, err)
	assert.Equal(t, expr.KindBoundReference, bound.Children()[0].Kind())
	assert.True(t, bound.Children()[1].Equals(missing))
}

func TestBindReferencesKeepsOrder(t *testing.T) {
	a := expr.NewAttribute("a", arrow.PrimitiveTypes.Int64, false)
	b := expr.NewAttribute("b", arrow.PrimitiveTypes.Int64, false)
	input := expr.AttributeSeq{a, b}
	assert.Equal(t, 1, input.IndexOf(b.ID()))
	assert.Equal(t, -1, input.IndexOf(expr.NewExprID()))

	out, err := expr.BindReferences([]expr.Expression{b, a, b}, input, false)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, ord := range []int{1, 0, 1} {
		assert.Equal(t, ord, out[i].(*expr.BoundReference).Ordinal())
	}
}

func TestBindColumnarReferences(t *testing.T) {
	a := expr.NewAttribute("a", arrow.PrimitiveTypes.Int64, false)
	e, err := expr.ToColumnar(expr.NewAdd(a, expr.Lit(1)))
	require.NoError(t, err)

	bound, err := expr.BindReference(e, expr.AttributeSeq{a}, false)
	require.NoError(t, err)
	assert.Equal(t, expr.KindColumnarAdd, bound.Kind())
	assert.Equal(t, expr.KindColumnarBoundReference, bound.Children()[0].Kind())
	assert.True(t, expr.SupportsColumnar(bound))
}

// binding then evaluating over a batch must agree with row-wise
// evaluation of the same expression.
func TestBoundColumnarMatchesRowEval(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	a := expr.NewAttribute("a", arrow.PrimitiveTypes.Int64, false)
	b := expr.NewAttribute("b", arrow.PrimitiveTypes.Int64, false)
	input := expr.AttributeSeq{a, b}

	colA := []int64{1, -5, 100, 7}
	colB := []int64{10, 20, 30, -7}
	batch := makeBatch(t, mem, input, colA, colB)
	defer batch.Release()

	exprs := []expr.Expression{
		expr.NewAlias(expr.NewAdd(a, b), "sum"),
		expr.NewAlias(expr.NewAdd(expr.NewAdd(a, expr.Lit(5)), b), "nested"),
		expr.NewAlias(expr.NewAdd(expr.Lit(3), a), "lhs_scalar"),
		expr.NewAlias(b, "passthrough"),
	}

	ectx := &compute.ExecCtx{Mem: mem}
	for _, e := range exprs {
		t.Run(e.(expr.NamedExpression).Name(), func(t *testing.T) {
			rowBound, err := expr.BindReference(e, input, false)
			require.NoError(t, err)

			col, err := expr.ToColumnar(e)
			require.NoError(t, err)
			colBound, err := expr.BindReference(col, input, false)
			require.NoError(t, err)

			out, err := expr.ColumnarEval(ectx, colBound, batch)
			require.NoError(t, err)
			defer out.Release()
			require.Equal(t, compute.KindArray, out.Kind())
			arr := out.(*compute.ArrayDatum).Value

			for i := range colA {
				want, err := rowBound.Eval(expr.Row{colA[i], colB[i]})
				require.NoError(t, err)
				got, err := expr.ValueAt(arr, i)
				require.NoError(t, err)
				assert.Equal(t, want, got, "row %d", i)
			}
		})
	}
}
