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

package rules

import "github.com/zeroshade/colexec/plan"

// InsertTransitions places RowToColumnar and ColumnarToRow nodes wherever
// an operator's input is produced in the other format. Columnar selects
// the format required at the root. Existing transitions that are no
// longer needed are removed.
type InsertTransitions struct {
	Columnar bool
}

func (InsertTransitions) Name() string { return "InsertTransitions" }

func (t InsertTransitions) Apply(n plan.Node) plan.Node {
	return insertTransitions(n, t.Columnar)
}

func insertTransitions(n plan.Node, columnar bool) plan.Node {
	switch n := n.(type) {
	case *plan.RowToColumnar:
		if inner, ok := n.Child.(*plan.ColumnarToRow); ok {
			return insertTransitions(inner.Child, columnar)
		}
		if !columnar {
			return insertTransitions(n.Child, false)
		}
		return withChildren(n, false)
	case *plan.ColumnarToRow:
		if inner, ok := n.Child.(*plan.RowToColumnar); ok {
			return insertTransitions(inner.Child, columnar)
		}
		if columnar {
			return insertTransitions(n.Child, true)
		}
		return withChildren(n, true)
	}

	switch {
	case !n.SupportsColumnar() && !n.SupportsRows():
		return n
	case columnar && n.SupportsColumnar():
		return withChildren(n, true)
	case columnar:
		return &plan.RowToColumnar{Child: withChildren(n, false)}
	case n.SupportsRows():
		return withChildren(n, false)
	default:
		return &plan.ColumnarToRow{Child: withChildren(n, true)}
	}
}

// withChildren requires every child of n to produce the given format. Each
// child gets its own transition, so siblings may start out in different
// formats.
func withChildren(n plan.Node, columnar bool) plan.Node {
	return plan.MapChildren(n, func(c plan.Node) plan.Node {
		return insertTransitions(c, columnar)
	})
}
