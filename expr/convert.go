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
	"fmt"

	"github.com/apache/arrow/go/v8/arrow"
	"github.com/zeroshade/colexec/compute"
)

// UnsupportedExpressionError reports an expression that has no columnar
// counterpart.
type UnsupportedExpressionError struct {
	Expr   Expression
	Reason string
}

func (e *UnsupportedExpressionError) Error() string {
	return fmt.Sprintf("cannot replace expression %s %s: %s", e.Expr.Kind(), e.Expr, e.Reason)
}

func (e *UnsupportedExpressionError) Unwrap() error { return compute.ErrUnsupportedOperation }

func isColumnarInt(dt arrow.DataType) bool {
	return dt != nil && dt.ID() == arrow.INT64
}

// ToColumnar converts e and all of its children into their columnar
// counterparts. Columnar expressions are returned unchanged. Any
// expression without a columnar form yields an
// *UnsupportedExpressionError.
func ToColumnar(e Expression) (Expression, error) {
	switch e := e.(type) {
	case *Literal:
		return &ColumnarLiteral{*e}, nil
	case *AttributeReference:
		return &ColumnarAttributeReference{*e}, nil
	case *Alias:
		child, err := ToColumnar(e.child)
		if err != nil {
			return nil, err
		}
		out := &ColumnarAlias{*e}
		out.child = child
		return out, nil
	case *Add:
		if !isColumnarInt(e.Type()) || !isColumnarInt(e.left.Type()) || !isColumnarInt(e.right.Type()) {
			return nil, &UnsupportedExpressionError{Expr: e,
				Reason: fmt.Sprintf("add of %s and %s is not supported", e.left.Type(), e.right.Type())}
		}
		left, err := ToColumnar(e.left)
		if err != nil {
			return nil, err
		}
		right, err := ToColumnar(e.right)
		if err != nil {
			return nil, err
		}
		return &ColumnarAdd{Add{left: left, right: right}}, nil
	case *ColumnarLiteral, *ColumnarAttributeReference, *ColumnarBoundReference, *ColumnarAlias, *ColumnarAdd:
		return e, nil
	case *BoundReference, *ScalarFunction:
	}
	return nil, &UnsupportedExpressionError{Expr: e, Reason: "no columnar implementation"}
}

// ToColumnarNamed converts a named expression, failing if the result is
// no longer named.
func ToColumnarNamed(e NamedExpression) (NamedExpression, error) {
	out, err := ToColumnar(e)
	if err != nil {
		return nil, err
	}
	named, ok := out.(NamedExpression)
	if !ok {
		return nil, &UnsupportedExpressionError{Expr: e, Reason: "columnar form is not a named expression"}
	}
	return named, nil
}
