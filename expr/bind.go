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
	"strings"

	"github.com/zeroshade/colexec/compute"
	"golang.org/x/xerrors"
)

// AttributeSeq is the ordered output schema of a plan node.
type AttributeSeq []*AttributeReference

// IndexOf returns the ordinal of the attribute with the given identity, or
// -1.
func (s AttributeSeq) IndexOf(id ExprID) int {
	for i, a := range s {
		if a.id == id {
			return i
		}
	}
	return -1
}

func (s AttributeSeq) String() string {
	names := make([]string, len(s))
	for i, a := range s {
		names[i] = a.String()
	}
	return "[" + strings.Join(names, ", ") + "]"
}

type binder struct {
	input         AttributeSeq
	ordinals      map[ExprID]int
	allowFailures bool
}

func newBinder(input AttributeSeq, allowFailures bool) *binder {
	ordinals := make(map[ExprID]int, len(input))
	for i := len(input) - 1; i >= 0; i-- {
		ordinals[input[i].id] = i
	}
	return &binder{input: input, ordinals: ordinals, allowFailures: allowFailures}
}

func (b *binder) lookup(a *AttributeReference) (int, error) {
	if ord, ok := b.ordinals[a.id]; ok {
		return ord, nil
	}
	return -1, xerrors.Errorf("%w: couldn't find %s in %s", compute.ErrUnboundReference, a, b.input)
}

func (b *binder) bind(e Expression) (Expression, error) {
	switch e := e.(type) {
	case *AttributeReference:
		ord, err := b.lookup(e)
		if err != nil {
			if b.allowFailures {
				return e, nil
			}
			return nil, err
		}
		in := b.input[ord]
		return NewBoundReference(ord, in.dt, in.nullable), nil
	case *ColumnarAttributeReference:
		ord, err := b.lookup(&e.AttributeReference)
		if err != nil {
			if b.allowFailures {
				return e, nil
			}
			return nil, err
		}
		in := b.input[ord]
		return NewColumnarBoundReference(ord, in.dt, in.nullable), nil
	}

	children := e.Children()
	if len(children) == 0 {
		return e, nil
	}

	bound := make([]Expression, len(children))
	for i, c := range children {
		var err error
		if bound[i], err = b.bind(c); err != nil {
			return nil, err
		}
	}
	return e.WithNewChildren(bound), nil
}

// BindReference replaces every attribute in e with a reference to its
// position in input. An attribute missing from input is an error unless
// allowFailures is set, in which case it is left unbound.
func BindReference(e Expression, input AttributeSeq, allowFailures bool) (Expression, error) {
	return newBinder(input, allowFailures).bind(e)
}

// BindReferences binds each expression of exprs against input, keeping
// their order.
func BindReferences(exprs []Expression, input AttributeSeq, allowFailures bool) ([]Expression, error) {
	b := newBinder(input, allowFailures)
	out := make([]Expression, len(exprs))
	for i, e := range exprs {
		var err error
		if out[i], err = b.bind(e); err != nil {
			return nil, err
		}
	}
	return out, nil
}
