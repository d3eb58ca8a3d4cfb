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

package expr_test

import (
	"strings"
	"testing"

	"github.com/apache/arrow/go/v8/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeroshade/colexec/expr"
)

func TestRegistry(t *testing.T) {
	reg := &expr.Registry{}
	upper := &expr.FunctionDef{
		Name:       "upper",
		ReturnType: arrow.BinaryTypes.String,
		Fn: func(args []any) (any, error) {
			if args[0] == nil {
				return nil, nil
			}
			return strings.ToUpper(args[0].(string)), nil
		},
	}

	assert.Empty(t, reg.GetFunctionNames())
	require.NoError(t, reg.AddFunction(upper, false))
	assert.ErrorIs(t, reg.AddFunction(upper, false), expr.ErrFunctionExists)
	assert.NoError(t, reg.AddFunction(upper, true))
	require.NoError(t, reg.AddAlias("ucase", "upper"))
	assert.ErrorIs(t, reg.AddAlias("ucase", "upper"), expr.ErrFunctionExists)
	assert.ErrorIs(t, reg.AddAlias("x", "missing"), expr.ErrFunctionNotFound)
	assert.Equal(t, []string{"ucase", "upper"}, reg.GetFunctionNames())

	_, err := reg.Call("lower", expr.Lit("a"))
	assert.ErrorIs(t, err, expr.ErrFunctionNotFound)

	call, err := reg.Call("ucase", expr.Lit("abc"))
	require.NoError(t, err)
	assert.Equal(t, "upper(abc)", call.String())
	assert.Equal(t, expr.KindScalarFunction, call.Kind())
	assert.False(t, expr.SupportsColumnar(call))

	v, err := call.Eval(nil)
	require.NoError(t, err)
	assert.Equal(t, "ABC", v)

	other, err := reg.Call("upper", expr.Lit("abc"))
	require.NoError(t, err)
	assert.True(t, call.Equals(other))
}

func TestRegistryRejectsIncompleteDefinitions(t *testing.T) {
	reg := &expr.Registry{}
	fn := func(args []any) (any, error) { return args[0], nil }

	for _, def := range []*expr.FunctionDef{
		nil,
		{ReturnType: arrow.PrimitiveTypes.Int64, Fn: fn},
		{Name: "noimpl", ReturnType: arrow.PrimitiveTypes.Int64},
		{Name: "notype", Fn: fn},
	} {
		assert.ErrorIs(t, reg.AddFunction(def, true), expr.ErrInvalidFunction)
	}
	assert.Empty(t, reg.GetFunctionNames())
}
