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
	"strings"
	"testing"

	"github.com/apache/arrow/go/v8/arrow"
	"github.com/apache/arrow/go/v8/arrow/array"
	"github.com/apache/arrow/go/v8/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/zeroshade/colexec/compute"
	"github.com/zeroshade/colexec/expr"
	"github.com/zeroshade/colexec/plan"
	"github.com/zeroshade/colexec/task"
)

var int64Schema = arrow.NewSchema([]arrow.Field{{Name: "col", Type: arrow.PrimitiveTypes.Int64, Nullable: true}}, nil)

func makeRecord(mem memory.Allocator, vals ...int64) arrow.Record {
	bldr := array.NewRecordBuilder(mem, int64Schema)
	defer bldr.Release()
	bldr.Field(0).(*array.Int64Builder).AppendValues(vals, nil)
	return bldr.NewRecord()
}

func int64Column(t *testing.T, rec arrow.Record, col int) []int64 {
	t.Helper()
	arr, ok := rec.Column(col).(*array.Int64)
	require.Truef(t, ok, "column %d is %s", col, rec.Column(col).DataType())
	return arr.Int64Values()
}

type PlanSuite struct {
	suite.Suite

	mem  *memory.CheckedAllocator
	ectx *compute.ExecCtx
	scan *plan.Scan
}

func (s *PlanSuite) SetupTest() {
	s.mem = memory.NewCheckedAllocator(memory.NewGoAllocator())
	s.ectx = &compute.ExecCtx{Mem: s.mem, BatchSize: compute.DefaultBatchSize}

	first, second := makeRecord(s.mem, 100, 200, 300), makeRecord(s.mem, 400)
	defer first.Release()
	defer second.Release()

	var err error
	s.scan, err = plan.NewScan("t", int64Schema, [][]arrow.Record{{first}, {second}})
	s.Require().NoError(err)
}

func (s *PlanSuite) TearDownTest() {
	s.scan.Release()
	s.mem.AssertSize(s.T(), 0)
}

func (s *PlanSuite) newTask(partition int) *task.Context {
	return task.New(compute.SetExecCtx(context.Background(), s.ectx), partition)
}

func (s *PlanSuite) col() *expr.AttributeReference { return s.scan.Output()[0] }

func (s *PlanSuite) plusOne() []expr.NamedExpression {
	return []expr.NamedExpression{expr.NewAlias(expr.NewAdd(s.col(), expr.Lit(1)), "x")}
}

func (s *PlanSuite) columnarPlusOne() []expr.NamedExpression {
	e, err := expr.ToColumnarNamed(s.plusOne()[0])
	s.Require().NoError(err)
	return []expr.NamedExpression{e}
}

func (s *PlanSuite) collectRows(n plan.Node, partition int) []expr.Row {
	tctx := s.newTask(partition)
	defer tctx.MarkCompleted()

	it, err := n.Execute(tctx, partition)
	s.Require().NoError(err)

	var out []expr.Row
	for it.HasNext() {
		row, err := it.Next()
		s.Require().NoError(err)
		out = append(out, row)
	}
	s.Require().NoError(it.Err())
	return out
}

func (s *PlanSuite) collectColumn(n plan.Node, partition int) [][]int64 {
	tctx := s.newTask(partition)
	defer tctx.MarkCompleted()

	it, err := n.ExecuteColumnar(tctx, partition)
	s.Require().NoError(err)

	var out [][]int64
	for it.HasNext() {
		batch, err := it.Next()
		s.Require().NoError(err)
		out = append(out, append([]int64(nil), int64Column(s.T(), batch, 0)...))
	}
	s.Require().NoError(it.Err())
	return out
}

func (s *PlanSuite) TestScanRows() {
	s.Equal(2, s.scan.NumPartitions())
	s.True(s.scan.SupportsRows())
	s.True(s.scan.SupportsColumnar())
	s.Equal([]expr.Row{{int64(100)}, {int64(200)}, {int64(300)}}, s.collectRows(s.scan, 0))
	s.Equal([]expr.Row{{int64(400)}}, s.collectRows(s.scan, 1))

	_, err := s.scan.Execute(s.newTask(2), 2)
	s.Error(err)
}

func (s *PlanSuite) TestScanSchemaMismatch() {
	other := arrow.NewSchema([]arrow.Field{{Name: "other", Type: arrow.PrimitiveTypes.Int32}}, nil)
	rec := makeRecord(s.mem, 1)
	defer rec.Release()

	_, err := plan.NewScan("bad", other, [][]arrow.Record{{rec}})
	s.ErrorIs(err, plan.ErrSchemaMismatch)
}

func (s *PlanSuite) TestRowProjection() {
	proj := plan.NewProjection(s.plusOne(), s.scan)
	s.False(proj.SupportsColumnar())
	s.Equal([]expr.Row{{int64(101)}, {int64(201)}, {int64(301)}}, s.collectRows(proj, 0))

	_, err := proj.ExecuteColumnar(s.newTask(0), 0)
	s.ErrorIs(err, compute.ErrUnsupportedOperation)
}

func (s *PlanSuite) TestColumnarProjectionWithBias() {
	s.ectx.AddBias = 1
	proj := plan.NewColumnarProjection(s.columnarPlusOne(), s.scan)
	s.True(proj.SupportsColumnar())
	s.False(proj.SupportsRows())

	s.Equal([][]int64{{102, 202, 302}}, s.collectColumn(proj, 0))
	s.Equal([][]int64{{402}}, s.collectColumn(proj, 1))
}

func (s *PlanSuite) TestColumnarProjectionBroadcastsScalars() {
	one, err := expr.ToColumnarNamed(expr.NewAlias(expr.Lit(7), "seven"))
	s.Require().NoError(err)

	proj := plan.NewColumnarProjection([]expr.NamedExpression{one}, s.scan)
	s.Equal([][]int64{{7, 7, 7}}, s.collectColumn(proj, 0))
}

func (s *PlanSuite) TestColumnarProjectionUnsupported() {
	proj := plan.NewColumnarProjection(s.plusOne(), s.scan)
	s.False(proj.SupportsColumnar())

	tctx := s.newTask(0)
	defer tctx.MarkCompleted()
	it, err := proj.ExecuteColumnar(tctx, 0)
	s.Require().NoError(err)
	s.True(it.HasNext())
	_, err = it.Next()
	s.ErrorIs(err, compute.ErrUnsupportedOperation)
	s.False(it.HasNext())
}

func (s *PlanSuite) TestTaskCompletionReleasesBatch() {
	proj := plan.NewColumnarProjection(s.columnarPlusOne(), s.scan)

	tctx := s.newTask(0)
	it, err := proj.ExecuteColumnar(tctx, 0)
	s.Require().NoError(err)
	s.Require().True(it.HasNext())
	_, err = it.Next()
	s.Require().NoError(err)

	// the consumer stops early; completion must release the batch
	tctx.MarkCompleted()
}

func (s *PlanSuite) TestCancelledTask() {
	proj := plan.NewColumnarProjection(s.columnarPlusOne(), s.scan)

	tctx := s.newTask(0)
	defer tctx.MarkCompleted()
	it, err := proj.ExecuteColumnar(tctx, 0)
	s.Require().NoError(err)

	tctx.Cancel()
	s.False(it.HasNext())
	s.ErrorIs(it.Err(), context.Canceled)
}

func (s *PlanSuite) TestTransitions() {
	s.ectx.BatchSize = 2
	toCol := &plan.RowToColumnar{Child: plan.NewProjection(s.plusOne(), s.scan)}
	s.True(toCol.SupportsColumnar())
	s.False(toCol.SupportsRows())
	s.Equal([][]int64{{101, 201}, {301}}, s.collectColumn(toCol, 0))

	toRow := &plan.ColumnarToRow{Child: toCol}
	s.Equal([]expr.Row{{int64(101)}, {int64(201)}, {int64(301)}}, s.collectRows(toRow, 0))
	s.Equal([]expr.Row{{int64(401)}}, s.collectRows(toRow, 1))
}

func (s *PlanSuite) TestRowToColumnarEarlyStop() {
	s.ectx.BatchSize = 1
	toCol := &plan.RowToColumnar{Child: s.scan}

	tctx := s.newTask(0)
	it, err := toCol.ExecuteColumnar(tctx, 0)
	s.Require().NoError(err)
	s.Require().True(it.HasNext())
	batch, err := it.Next()
	s.Require().NoError(err)
	s.EqualValues(1, batch.NumRows())
	tctx.MarkCompleted()
}

func (s *PlanSuite) TestUnion() {
	left := plan.NewProjection([]expr.NamedExpression{s.col()}, s.scan)
	union, err := plan.NewUnion(s.scan, left)
	s.Require().NoError(err)

	s.Equal(4, union.NumPartitions())
	s.True(union.SupportsColumnar())
	s.True(union.SupportsRows())
	s.Equal(s.scan.Output(), union.Output())
	s.Equal([]expr.Row{{int64(400)}}, s.collectRows(union, 1))
	s.Equal([]expr.Row{{int64(100)}, {int64(200)}, {int64(300)}}, s.collectRows(union, 2))

	_, err = union.Execute(s.newTask(4), 4)
	s.Error(err)

	// each partition is read in the format of the child that owns it
	s.Equal([][]int64{{100, 200, 300}}, s.collectColumn(union, 0))
	_, err = union.ExecuteColumnar(s.newTask(2), 2)
	s.ErrorIs(err, compute.ErrUnsupportedOperation)

	other := arrow.NewSchema([]arrow.Field{{Name: "s", Type: arrow.BinaryTypes.String}}, nil)
	empty, err := plan.NewScan("empty", other, nil)
	s.Require().NoError(err)
	_, err = plan.NewUnion(s.scan, empty)
	s.ErrorIs(err, plan.ErrSchemaMismatch)
}

func (s *PlanSuite) TestExplainAndMapChildren() {
	union, err := plan.NewUnion(s.scan, s.scan)
	s.Require().NoError(err)
	root := plan.NewProjection(s.plusOne(), union)

	lines := strings.Split(strings.TrimSpace(plan.Explain(root)), "\n")
	s.Require().Len(lines, 4)
	s.True(strings.HasPrefix(lines[0], "Project ["))
	s.True(strings.HasPrefix(lines[1], "+- Union"))
	s.True(strings.HasPrefix(lines[2], "   :- Scan t"))
	s.True(strings.HasPrefix(lines[3], "   +- Scan t"))

	same := plan.MapChildren(root, func(n plan.Node) plan.Node { return n })
	s.Same(root, same)
	s.Same(s.scan, plan.MapChildren(s.scan, func(plan.Node) plan.Node { return nil }))

	wrapped := plan.MapChildren(union, func(n plan.Node) plan.Node {
		return &plan.RowToColumnar{Child: n}
	})
	s.NotSame(union, wrapped)
	s.False(union.Equals(wrapped))
	s.Len(wrapped.Children(), 2)
	s.Contains(plan.Explain(wrapped), "+- RowToColumnar")
}

func TestPlan(t *testing.T) {
	suite.Run(t, new(PlanSuite))
}

func TestSchema(t *testing.T) {
	a := expr.NewAttribute("a", arrow.PrimitiveTypes.Int64, false)
	b := expr.NewAttribute("b", arrow.BinaryTypes.String, true)
	n := plan.NewProjection([]expr.NamedExpression{a, b}, nil)

	schema := plan.Schema(n)
	require.Len(t, schema.Fields(), 2)
	assert.Equal(t, arrow.Field{Name: "a", Type: arrow.PrimitiveTypes.Int64}, schema.Field(0))
	assert.True(t, schema.Field(1).Nullable)
}
