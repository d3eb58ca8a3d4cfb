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
	"errors"
	"sync"

	"github.com/apache/arrow/go/v8/arrow"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"
)

var (
	ErrFunctionNotFound = errors.New("function not found")
	ErrFunctionExists   = errors.New("function already registered")
	ErrInvalidFunction  = errors.New("invalid function definition")
)

// FunctionDef describes a row-wise scalar function. Fn receives the
// evaluated arguments, nil for nulls.
type FunctionDef struct {
	Name       string
	ReturnType arrow.DataType
	Fn         func(args []any) (any, error)
}

func (d *FunctionDef) validate() error {
	switch {
	case d == nil:
		return xerrors.Errorf("%w: nil definition", ErrInvalidFunction)
	case d.Name == "":
		return xerrors.Errorf("%w: missing name", ErrInvalidFunction)
	case d.Fn == nil:
		return xerrors.Errorf("%w: %s has no implementation", ErrInvalidFunction, d.Name)
	case d.ReturnType == nil:
		return xerrors.Errorf("%w: %s has no return type", ErrInvalidFunction, d.Name)
	}
	return nil
}

// Registry maps function names, including aliases, to their
// definitions. It is safe for concurrent use; the zero value is empty
// and ready to use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]*FunctionDef
}

// AddFunction registers def under its name. Replacing an existing entry
// requires allowOverwrite.
func (r *Registry) AddFunction(def *FunctionDef, allowOverwrite bool) error {
	if err := def.validate(); err != nil {
		return err
	}
	return r.register(def.Name, def, allowOverwrite)
}

// AddAlias makes the function registered as source callable as target.
func (r *Registry) AddAlias(target, source string) error {
	def, err := r.GetFunction(source)
	if err != nil {
		return err
	}
	return r.register(target, def, false)
}

func (r *Registry) register(name string, def *FunctionDef, allowOverwrite bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.funcs[name]; ok && !allowOverwrite {
		return xerrors.Errorf("%w: %s", ErrFunctionExists, name)
	}
	if r.funcs == nil {
		r.funcs = make(map[string]*FunctionDef)
	}
	r.funcs[name] = def
	return nil
}

func (r *Registry) GetFunction(name string) (*FunctionDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if def, ok := r.funcs[name]; ok {
		return def, nil
	}
	return nil, xerrors.Errorf("%w: %s", ErrFunctionNotFound, name)
}

// GetFunctionNames returns the registered names in sorted order.
func (r *Registry) GetFunctionNames() []string {
	r.mu.RLock()
	names := maps.Keys(r.funcs)
	r.mu.RUnlock()

	slices.Sort(names)
	return names
}

// Call returns an expression applying the named function to args.
func (r *Registry) Call(name string, args ...Expression) (*ScalarFunction, error) {
	def, err := r.GetFunction(name)
	if err != nil {
		return nil, err
	}
	return NewScalarFunction(def, args...), nil
}

func NewScalarFunction(def *FunctionDef, args ...Expression) *ScalarFunction {
	return &ScalarFunction{def: def, args: args}
}
