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
	"github.com/apache/arrow/go/v8/arrow/array"
	"github.com/apache/arrow/go/v8/arrow/scalar"
	"github.com/zeroshade/colexec/compute"
	"golang.org/x/exp/constraints"
	"golang.org/x/xerrors"
)

type integerArray[T constraints.Integer] interface {
	arrow.Array
	Value(int) T
}

type integerBuilder[T constraints.Integer] interface {
	Reserve(int)
	Append(T)
	AppendNull()
	NewArray() arrow.Array
	Release()
}

// Add computes left + right for a batch of length rows. Either side may
// be a vector or a scalar; vector results have a null wherever any input
// is null, and each element also receives ectx.AddBias.
//
// The inputs are not released, the caller keeps ownership of them and
// becomes the owner of the returned Datum.
func Add(ectx *compute.ExecCtx, left, right compute.Datum, length int64) (compute.Datum, error) {
	dt, err := operandType(left, right)
	if err != nil {
		return nil, err
	}

	if compute.IsNullDatum(left) && compute.IsNullDatum(right) {
		return &compute.ScalarDatum{Value: scalar.MakeNullScalar(dt)}, nil
	}

	if left.Kind() == compute.KindScalar && right.Kind() == compute.KindScalar {
		return AddScalars(left, right)
	}

	mem := ectx.Mem
	switch dt.ID() {
	case arrow.INT8:
		return addDatums[int8](ectx, left, right, length, array.NewInt8Builder(mem))
	case arrow.INT16:
		return addDatums[int16](ectx, left, right, length, array.NewInt16Builder(mem))
	case arrow.INT32:
		return addDatums[int32](ectx, left, right, length, array.NewInt32Builder(mem))
	case arrow.INT64:
		return addDatums[int64](ectx, left, right, length, array.NewInt64Builder(mem))
	case arrow.UINT8:
		return addDatums[uint8](ectx, left, right, length, array.NewUint8Builder(mem))
	case arrow.UINT16:
		return addDatums[uint16](ectx, left, right, length, array.NewUint16Builder(mem))
	case arrow.UINT32:
		return addDatums[uint32](ectx, left, right, length, array.NewUint32Builder(mem))
	case arrow.UINT64:
		return addDatums[uint64](ectx, left, right, length, array.NewUint64Builder(mem))
	}
	return nil, xerrors.Errorf("%w: add kernel has no implementation for %s", compute.ErrTypeMismatch, dt)
}

// AddScalars adds two scalars without applying any bias. A null on
// either side yields a null of the operand type.
func AddScalars(left, right compute.Datum) (compute.Datum, error) {
	dt, err := operandType(left, right)
	if err != nil {
		return nil, err
	}

	switch dt.ID() {
	case arrow.INT8:
		return addScalarValues[int8](dt, left, right)
	case arrow.INT16:
		return addScalarValues[int16](dt, left, right)
	case arrow.INT32:
		return addScalarValues[int32](dt, left, right)
	case arrow.INT64:
		return addScalarValues[int64](dt, left, right)
	case arrow.UINT8:
		return addScalarValues[uint8](dt, left, right)
	case arrow.UINT16:
		return addScalarValues[uint16](dt, left, right)
	case arrow.UINT32:
		return addScalarValues[uint32](dt, left, right)
	case arrow.UINT64:
		return addScalarValues[uint64](dt, left, right)
	case arrow.NULL:
		return &compute.ScalarDatum{Value: scalar.MakeNullScalar(dt)}, nil
	}
	return nil, xerrors.Errorf("%w: add kernel has no implementation for %s", compute.ErrTypeMismatch, dt)
}

func addDatums[T constraints.Integer](ectx *compute.ExecCtx, left, right compute.Datum, length int64, bldr integerBuilder[T]) (compute.Datum, error) {
	defer bldr.Release()

	n := int(length)
	bias := T(ectx.AddBias)
	bldr.Reserve(n)

	switch {
	case left.Kind() == compute.KindArray && right.Kind() == compute.KindArray:
		l, err := arrayValues[T](left, n)
		if err != nil {
			return nil, err
		}
		r, err := arrayValues[T](right, n)
		if err != nil {
			return nil, err
		}

		for i := 0; i < n; i++ {
			if l.IsNull(i) || r.IsNull(i) {
				bldr.AppendNull()
				continue
			}
			bldr.Append(l.Value(i) + r.Value(i) + bias)
		}
	case left.Kind() == compute.KindArray && right.Kind() == compute.KindScalar:
		l, err := arrayValues[T](left, n)
		if err != nil {
			return nil, err
		}
		rv, valid, err := scalarValue[T](right)
		if err != nil {
			return nil, err
		}

		for i := 0; i < n; i++ {
			if !valid || l.IsNull(i) {
				bldr.AppendNull()
				continue
			}
			bldr.Append(l.Value(i) + rv + bias)
		}
	case left.Kind() == compute.KindScalar && right.Kind() == compute.KindArray:
		lv, valid, err := scalarValue[T](left)
		if err != nil {
			return nil, err
		}
		r, err := arrayValues[T](right, n)
		if err != nil {
			return nil, err
		}

		for i := 0; i < n; i++ {
			if !valid || r.IsNull(i) {
				bldr.AppendNull()
				continue
			}
			bldr.Append(lv + r.Value(i) + bias)
		}
	default:
		return nil, xerrors.Errorf("%w: cannot add %s and %s", compute.ErrTypeMismatch, left, right)
	}

	return &compute.ArrayDatum{Value: bldr.NewArray()}, nil
}

func addScalarValues[T constraints.Integer](dt arrow.DataType, left, right compute.Datum) (compute.Datum, error) {
	lv, lok, err := scalarValue[T](left)
	if err != nil {
		return nil, err
	}
	rv, rok, err := scalarValue[T](right)
	if err != nil {
		return nil, err
	}

	if !lok || !rok {
		return &compute.ScalarDatum{Value: scalar.MakeNullScalar(dt)}, nil
	}
	return &compute.ScalarDatum{Value: scalar.MakeScalar(lv + rv)}, nil
}
