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

import (
	"github.com/zeroshade/colexec/expr"
	"github.com/zeroshade/colexec/plan"
	"go.uber.org/zap"
)

// ReplaceWithColumnar replaces every projection whose expressions all
// have columnar forms with a ColumnarProjection.
//
// When a projection cannot be converted a warning is logged and the
// projection, together with everything below it, is kept as it was.
// Ancestors and siblings are still converted. Applying the rule to its
// own output changes nothing.
type ReplaceWithColumnar struct {
	Logger *zap.Logger
}

func (*ReplaceWithColumnar) Name() string { return "ReplaceWithColumnar" }

func (r *ReplaceWithColumnar) Apply(n plan.Node) plan.Node {
	return r.replace(n)
}

func (r *ReplaceWithColumnar) logger() *zap.Logger {
	if r.Logger == nil {
		return DefaultLogger
	}
	return r.Logger
}

func (r *ReplaceWithColumnar) replace(n plan.Node) plan.Node {
	out, err := r.replaceNode(n)
	if err != nil {
		r.logger().Warn("columnar processing is not supported",
			zap.String("node", nodeName(n)), zap.Error(err))
		return n
	}
	return out
}

func (r *ReplaceWithColumnar) replaceNode(n plan.Node) (plan.Node, error) {
	switch n := n.(type) {
	case *plan.Projection:
		child := r.replace(n.Child)
		exprs := make([]expr.NamedExpression, len(n.Exprs))
		for i, e := range n.Exprs {
			var err error
			if exprs[i], err = expr.ToColumnarNamed(e); err != nil {
				return nil, err
			}
		}
		return plan.NewColumnarProjection(exprs, child), nil
	}

	return plan.MapChildren(n, r.replace), nil
}
