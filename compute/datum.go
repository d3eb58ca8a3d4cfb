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

package compute

import (
	"fmt"

	"github.com/apache/arrow/go/v8/arrow"
	"github.com/apache/arrow/go/v8/arrow/array"
	"github.com/apache/arrow/go/v8/arrow/scalar"
)

type DatumKind int8

const (
	KindNone   DatumKind = iota // none
	KindScalar                  // scalar
	KindArray                   // array
)

func (k DatumKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	}
	return "none"
}

// Datum is the result of evaluating an expression over a batch: either
// a column vector holding one value per row or a single scalar that
// applies to every row.
//
// A Datum returned from an evaluation is owned by the caller, who must
// call Release exactly once.
type Datum interface {
	fmt.Stringer
	Kind() DatumKind
	Len() int64
	NullN() int64
	Type() arrow.DataType
	Equals(Datum) bool
	Release()
}

// NewDatum wraps value in a Datum. Arrays are retained, so the caller
// keeps its own reference and must still release it.
func NewDatum(value interface{}) Datum {
	switch v := value.(type) {
	case arrow.Array:
		v.Retain()
		return &ArrayDatum{v}
	case scalar.Scalar:
		return &ScalarDatum{v}
	default:
		return &ScalarDatum{scalar.MakeScalar(value)}
	}
}

// IsNullDatum reports whether d is nil or a null scalar.
func IsNullDatum(d Datum) bool {
	switch d := d.(type) {
	case nil:
		return true
	case *ScalarDatum:
		return d.Value == nil || !d.Value.IsValid()
	}
	return false
}

type ScalarDatum struct {
	Value scalar.Scalar
}

func (ScalarDatum) Kind() DatumKind         { return KindScalar }
func (ScalarDatum) Len() int64              { return 1 }
func (*ScalarDatum) Release()               {}
func (s *ScalarDatum) Type() arrow.DataType { return s.Value.DataType() }
func (s *ScalarDatum) String() string       { return fmt.Sprintf("Scalar:{%s}", s.Value) }
func (s *ScalarDatum) NullN() int64 {
	if s.Value.IsValid() {
		return 0
	}
	return 1
}

func (s *ScalarDatum) Equals(other Datum) bool {
	rhs, ok := other.(*ScalarDatum)
	if !ok {
		return false
	}

	return scalar.Equals(s.Value, rhs.Value)
}

type ArrayDatum struct {
	Value arrow.Array
}

func (ArrayDatum) Kind() DatumKind         { return KindArray }
func (a *ArrayDatum) Type() arrow.DataType { return a.Value.DataType() }
func (a *ArrayDatum) Len() int64           { return int64(a.Value.Len()) }
func (a *ArrayDatum) NullN() int64         { return int64(a.Value.NullN()) }
func (a *ArrayDatum) String() string       { return fmt.Sprintf("Array:{%s}", a.Value.DataType()) }

// MakeArray returns a new reference to the underlying array.
func (a *ArrayDatum) MakeArray() arrow.Array {
	a.Value.Retain()
	return a.Value
}

func (a *ArrayDatum) Release() {
	if a.Value != nil {
		a.Value.Release()
		a.Value = nil
	}
}

func (a *ArrayDatum) Equals(other Datum) bool {
	rhs, ok := other.(*ArrayDatum)
	if !ok {
		return false
	}

	return array.Equal(a.Value, rhs.Value)
}

var (
	_ Datum = (*ScalarDatum)(nil)
	_ Datum = (*ArrayDatum)(nil)
)
