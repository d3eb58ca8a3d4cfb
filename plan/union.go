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
	"fmt"

	"github.com/apache/arrow/go/v8/arrow"
	"github.com/pkg/errors"
	"github.com/zeroshade/colexec/expr"
	"github.com/zeroshade/colexec/task"
)

// Union concatenates the partitions of its children. Partition i of the
// union is partition i of the first child, followed by the partitions of
// the second child and so on.
type Union struct {
	children []Node
}

func NewUnion(children ...Node) (*Union, error) {
	if len(children) == 0 {
		return nil, errors.New("union requires at least one child")
	}

	first := children[0].Output()
	for _, c := range children[1:] {
		if err := checkUnionable(first, c.Output()); err != nil {
			return nil, err
		}
	}
	return &Union{children: children}, nil
}

// checkUnionable reports whether rows of from can be read through the
// attributes of to: same arity and pairwise equal types.
func checkUnionable(to, from expr.AttributeSeq) error {
	if len(to) != len(from) {
		return errors.Wrapf(ErrSchemaMismatch, "union child has %d columns %s, expected %d %s", len(from), from, len(to), to)
	}

	for i, f := range from {
		if !arrow.TypeEqual(f.Type(), to[i].Type()) {
			return errors.Wrapf(ErrSchemaMismatch, "union column %d had type %s in child but %s in the union", i, f.Type(), to[i].Type())
		}
	}
	return nil
}

func (u *Union) String() string            { return fmt.Sprintf("Union %s", u.Output()) }
func (u *Union) Children() []Node          { return u.children }
func (u *Union) Output() expr.AttributeSeq { return u.children[0].Output() }

func (u *Union) WithNewChildren(children []Node) Node {
	return &Union{children: children}
}

func (u *Union) NumPartitions() int {
	n := 0
	for _, c := range u.children {
		n += c.NumPartitions()
	}
	return n
}

// A union reads each child in whichever format it is asked for, so it
// supports both. The child feeding a partition must produce that format,
// which InsertTransitions arranges per child.
func (u *Union) SupportsColumnar() bool { return true }
func (u *Union) SupportsRows() bool     { return true }

func (u *Union) Equals(other Node) bool {
	rhs, ok := other.(*Union)
	return ok && equalChildren(u.children, rhs.children)
}

// locate maps a union partition to a child and its local partition.
func (u *Union) locate(partition int) (Node, int, error) {
	if partition >= 0 {
		local := partition
		for _, c := range u.children {
			if local < c.NumPartitions() {
				return c, local, nil
			}
			local -= c.NumPartitions()
		}
	}
	return nil, 0, fmt.Errorf("union has no partition %d", partition)
}

func (u *Union) Execute(tctx *task.Context, partition int) (RowIterator, error) {
	child, local, err := u.locate(partition)
	if err != nil {
		return nil, err
	}
	return child.Execute(tctx, local)
}

func (u *Union) ExecuteColumnar(tctx *task.Context, partition int) (BatchIterator, error) {
	child, local, err := u.locate(partition)
	if err != nil {
		return nil, err
	}
	return child.ExecuteColumnar(tctx, local)
}
