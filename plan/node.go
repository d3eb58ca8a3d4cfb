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

// Package plan contains the physical operators a query is executed with.
//
// Operators process partitions independently. Within a partition, row
// operators are pulled through a RowIterator and columnar operators
// through a BatchIterator.
package plan

import (
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v8/arrow"
	"github.com/pkg/errors"
	"github.com/zeroshade/colexec/expr"
	"github.com/zeroshade/colexec/task"
)

var (
	ErrSchemaMismatch = errors.New("schema mismatch")

	errExhausted = errors.New("iterator exhausted")
)

// RowIterator yields the rows of one partition. The returned rows are
// owned by the caller.
type RowIterator interface {
	HasNext() bool
	Next() (expr.Row, error)
	// Err returns the error that stopped iteration, if any.
	Err() error
}

// BatchIterator yields the batches of one partition.
//
// The batch returned by Next is owned by the iterator and stays valid
// until the next call to HasNext or Next. Callers that need it for
// longer must Retain it.
type BatchIterator interface {
	HasNext() bool
	Next() (arrow.Record, error)
	// Err returns the error that stopped iteration, if any.
	Err() error
}

// Node is a physical operator. Nodes are immutable; rewrites build new
// trees with WithNewChildren.
type Node interface {
	fmt.Stringer
	Children() []Node
	WithNewChildren([]Node) Node
	Output() expr.AttributeSeq
	NumPartitions() int

	SupportsColumnar() bool
	SupportsRows() bool
	Execute(tctx *task.Context, partition int) (RowIterator, error)
	ExecuteColumnar(tctx *task.Context, partition int) (BatchIterator, error)

	// Equals reports whether both nodes are the same operator over
	// structurally equal expressions and children.
	Equals(Node) bool
}

// Schema returns the arrow schema matching the output of n.
func Schema(n Node) *arrow.Schema {
	return schemaOf(n.Output())
}

func schemaOf(attrs expr.AttributeSeq) *arrow.Schema {
	fields := make([]arrow.Field, len(attrs))
	for i, a := range attrs {
		fields[i] = a.Field()
	}
	return arrow.NewSchema(fields, nil)
}

func outputOf(exprs []expr.NamedExpression) expr.AttributeSeq {
	out := make(expr.AttributeSeq, len(exprs))
	for i, e := range exprs {
		out[i] = e.ToAttribute()
	}
	return out
}

func exprList(exprs []expr.NamedExpression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func equalChildren(left, right []Node) bool {
	if len(left) != len(right) {
		return false
	}
	for i := range left {
		if !left[i].Equals(right[i]) {
			return false
		}
	}
	return true
}

func equalNamed(left, right []expr.NamedExpression) bool {
	if len(left) != len(right) {
		return false
	}
	for i := range left {
		if !left[i].Equals(right[i]) {
			return false
		}
	}
	return true
}

// Explain renders the tree rooted at n, one operator per line.
func Explain(n Node) string {
	var b strings.Builder
	explain(&b, n, "", "")
	return b.String()
}

func explain(b *strings.Builder, n Node, prefix, childPrefix string) {
	b.WriteString(prefix)
	b.WriteString(n.String())
	b.WriteByte('\n')

	children := n.Children()
	for i, c := range children {
		if i == len(children)-1 {
			explain(b, c, childPrefix+"+- ", childPrefix+"   ")
		} else {
			explain(b, c, childPrefix+":- ", childPrefix+":  ")
		}
	}
}

// MapChildren replaces each child c of n with fn(c). n itself is
// returned when no child changed.
func MapChildren(n Node, fn func(Node) Node) Node {
	children := n.Children()
	if len(children) == 0 {
		return n
	}

	changed := false
	newChildren := make([]Node, len(children))
	for i, c := range children {
		newChildren[i] = fn(c)
		changed = changed || newChildren[i] != c
	}
	if !changed {
		return n
	}
	return n.WithNewChildren(newChildren)
}
