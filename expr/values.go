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
	"github.com/apache/arrow/go/v8/arrow/array"
	"github.com/apache/arrow/go/v8/arrow/scalar"
	"github.com/zeroshade/colexec/compute"
	"golang.org/x/exp/constraints"
	"golang.org/x/xerrors"
)

type number interface {
	constraints.Integer | constraints.Float
}

// TypeOf returns the arrow type used for a Go row value.
func TypeOf(v any) arrow.DataType {
	switch v.(type) {
	case int8:
		return arrow.PrimitiveTypes.Int8
	case int16:
		return arrow.PrimitiveTypes.Int16
	case int32:
		return arrow.PrimitiveTypes.Int32
	case int64:
		return arrow.PrimitiveTypes.Int64
	case uint8:
		return arrow.PrimitiveTypes.Uint8
	case uint16:
		return arrow.PrimitiveTypes.Uint16
	case uint32:
		return arrow.PrimitiveTypes.Uint32
	case uint64:
		return arrow.PrimitiveTypes.Uint64
	case float32:
		return arrow.PrimitiveTypes.Float32
	case float64:
		return arrow.PrimitiveTypes.Float64
	case string:
		return arrow.BinaryTypes.String
	case bool:
		return arrow.FixedWidthTypes.Boolean
	}
	return arrow.Null
}

func addValues(l, r any) (any, error) {
	if l == nil || r == nil {
		return nil, nil
	}

	switch lv := l.(type) {
	case int8:
		return addTyped(lv, r)
	case int16:
		return addTyped(lv, r)
	case int32:
		return addTyped(lv, r)
	case int64:
		return addTyped(lv, r)
	case uint8:
		return addTyped(lv, r)
	case uint16:
		return addTyped(lv, r)
	case uint32:
		return addTyped(lv, r)
	case uint64:
		return addTyped(lv, r)
	case float32:
		return addTyped(lv, r)
	case float64:
		return addTyped(lv, r)
	}
	return nil, xerrors.Errorf("%w: cannot add %T and %T", compute.ErrTypeMismatch, l, r)
}

func addTyped[T number](lv T, r any) (any, error) {
	rv, ok := r.(T)
	if !ok {
		return nil, xerrors.Errorf("%w: cannot add %T and %T", compute.ErrTypeMismatch, lv, r)
	}
	return lv + rv, nil
}

// ValueAt returns the value at row i of arr as a Go value, nil for a
// null.
func ValueAt(arr arrow.Array, i int) (any, error) {
	if arr.IsNull(i) {
		return nil, nil
	}

	switch a := arr.(type) {
	case *array.Int8:
		return a.Value(i), nil
	case *array.Int16:
		return a.Value(i), nil
	case *array.Int32:
		return a.Value(i), nil
	case *array.Int64:
		return a.Value(i), nil
	case *array.Uint8:
		return a.Value(i), nil
	case *array.Uint16:
		return a.Value(i), nil
	case *array.Uint32:
		return a.Value(i), nil
	case *array.Uint64:
		return a.Value(i), nil
	case *array.Float32:
		return a.Value(i), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.String:
		return a.Value(i), nil
	case *array.Boolean:
		return a.Value(i), nil
	}
	return nil, xerrors.Errorf("%w: no row representation for %s", compute.ErrTypeMismatch, arr.DataType())
}

// AppendValue appends a Go row value to bldr, or a null for nil.
func AppendValue(bldr array.Builder, v any) error {
	if v == nil {
		bldr.AppendNull()
		return nil
	}

	switch b := bldr.(type) {
	case *array.Int8Builder:
		return appendTyped(b.Append, v)
	case *array.Int16Builder:
		return appendTyped(b.Append, v)
	case *array.Int32Builder:
		return appendTyped(b.Append, v)
	case *array.Int64Builder:
		return appendTyped(b.Append, v)
	case *array.Uint8Builder:
		return appendTyped(b.Append, v)
	case *array.Uint16Builder:
		return appendTyped(b.Append, v)
	case *array.Uint32Builder:
		return appendTyped(b.Append, v)
	case *array.Uint64Builder:
		return appendTyped(b.Append, v)
	case *array.Float32Builder:
		return appendTyped(b.Append, v)
	case *array.Float64Builder:
		return appendTyped(b.Append, v)
	case *array.StringBuilder:
		return appendTyped(b.Append, v)
	case *array.BooleanBuilder:
		return appendTyped(b.Append, v)
	}
	return xerrors.Errorf("%w: cannot append %T to %T", compute.ErrTypeMismatch, v, bldr)
}

func appendTyped[T any](fn func(T), v any) error {
	tv, ok := v.(T)
	if !ok {
		return xerrors.Errorf("%w: cannot append %T as %T", compute.ErrTypeMismatch, v, tv)
	}
	fn(tv)
	return nil
}

// ScalarOf boxes a Go row value as a scalar of type dt.
func ScalarOf(v any, dt arrow.DataType) (scalar.Scalar, error) {
	if v == nil {
		return scalar.MakeNullScalar(dt), nil
	}

	s := scalar.MakeScalar(v)
	if !arrow.TypeEqual(s.DataType(), dt) {
		return nil, xerrors.Errorf("%w: value %v is %s, not %s", compute.ErrTypeMismatch, v, s.DataType(), dt)
	}
	return s, nil
}

// ValueOfScalar unboxes a scalar into a Go row value.
func ValueOfScalar(s scalar.Scalar) (any, error) {
	if s == nil || !s.IsValid() {
		return nil, nil
	}

	switch v := s.(type) {
	case *scalar.Int8:
		return v.Value, nil
	case *scalar.Int16:
		return v.Value, nil
	case *scalar.Int32:
		return v.Value, nil
	case *scalar.Int64:
		return v.Value, nil
	case *scalar.Uint8:
		return v.Value, nil
	case *scalar.Uint16:
		return v.Value, nil
	case *scalar.Uint32:
		return v.Value, nil
	case *scalar.Uint64:
		return v.Value, nil
	case *scalar.Float32:
		return v.Value, nil
	case *scalar.Float64:
		return v.Value, nil
	case *scalar.Boolean:
		return v.Value, nil
	case *scalar.String:
		return string(v.Value.Bytes()), nil
	}
	return nil, xerrors.Errorf("%w: no row representation for %s", compute.ErrTypeMismatch, s.DataType())
}
