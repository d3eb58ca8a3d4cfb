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

package kernels

import (
	"github.com/apache/arrow/go/v8/arrow"
	"github.com/apache/arrow/go/v8/arrow/scalar"
	"github.com/zeroshade/colexec/compute"
	"golang.org/x/exp/constraints"
	"golang.org/x/xerrors"
)

// operandType returns the shared type of a binary kernel's inputs. Null
// scalars of the null type adopt the type of the other side.
func operandType(left, right compute.Datum) (arrow.DataType, error) {
	if left == nil || right == nil {
		return nil, xerrors.Errorf("%w: missing operand", compute.ErrTypeMismatch)
	}

	lt, rt := datumType(left), datumType(right)
	switch {
	case lt.ID() == arrow.NULL:
		return rt, nil
	case rt.ID() == arrow.NULL:
		return lt, nil
	case !arrow.TypeEqual(lt, rt):
		return nil, xerrors.Errorf("%w: operand types differ: %s and %s", compute.ErrTypeMismatch, lt, rt)
	}
	return lt, nil
}

// datumType treats a scalar datum without a value as a null.
func datumType(d compute.Datum) arrow.DataType {
	if sd, ok := d.(*compute.ScalarDatum); ok && sd.Value == nil {
		return arrow.Null
	}
	return d.Type()
}

func arrayValues[T constraints.Integer](d compute.Datum, length int) (integerArray[T], error) {
	ad, ok := d.(*compute.ArrayDatum)
	if !ok {
		return nil, xerrors.Errorf("%w: expected array, got %s", compute.ErrTypeMismatch, d)
	}

	arr, ok := ad.Value.(integerArray[T])
	if !ok {
		return nil, xerrors.Errorf("%w: unexpected array type %s", compute.ErrTypeMismatch, ad.Value.DataType())
	}

	if arr.Len() != length {
		return nil, xerrors.Errorf("%w: array of length %d in batch of %d rows", compute.ErrInvalid, arr.Len(), length)
	}
	return arr, nil
}

// scalarValue unboxes an integer scalar. The boolean result is false
// when the scalar is null.
func scalarValue[T constraints.Integer](d compute.Datum) (T, bool, error) {
	sd, ok := d.(*compute.ScalarDatum)
	if !ok {
		return 0, false, xerrors.Errorf("%w: expected scalar, got %s", compute.ErrTypeMismatch, d)
	}

	if sd.Value == nil || !sd.Value.IsValid() {
		return 0, false, nil
	}

	switch v := sd.Value.(type) {
	case *scalar.Int8:
		return T(v.Value), true, nil
	case *scalar.Int16:
		return T(v.Value), true, nil
	case *scalar.Int32:
		return T(v.Value), true, nil
	case *scalar.Int64:
		return T(v.Value), true, nil
	case *scalar.Uint8:
		return T(v.Value), true, nil
	case *scalar.Uint16:
		return T(v.Value), true, nil
	case *scalar.Uint32:
		return T(v.Value), true, nil
	case *scalar.Uint64:
		return T(v.Value), true, nil
	}
	return 0, false, xerrors.Errorf("%w: unexpected scalar type %s", compute.ErrTypeMismatch, sd.Value.DataType())
}
