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

// Package expr defines the expression trees evaluated by the plan
// operators: a closed set of variants, each with a row-wise evaluation
// path, and the columnar counterparts that can evaluate over a whole
// batch of column vectors.
package expr

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/apache/arrow/go/v8/arrow"
	"github.com/google/uuid"
	"github.com/zeroshade/colexec/compute"
	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"
)

type Kind int8

const (
	KindLiteral Kind = iota
	KindAttributeReference
	KindBoundReference
	KindAlias
	KindAdd
	KindScalarFunction
	KindColumnarLiteral
	KindColumnarAttributeReference
	KindColumnarBoundReference
	KindColumnarAlias
	KindColumnarAdd
)

var kindNames = [...]string{
	KindLiteral:                    "Literal",
	KindAttributeReference:         "AttributeReference",
	KindBoundReference:             "BoundReference",
	KindAlias:                      "Alias",
	KindAdd:                        "Add",
	KindScalarFunction:             "ScalarFunction",
	KindColumnarLiteral:            "ColumnarLiteral",
	KindColumnarAttributeReference: "ColumnarAttributeReference",
	KindColumnarBoundReference:     "ColumnarBoundReference",
	KindColumnarAlias:              "ColumnarAlias",
	KindColumnarAdd:                "ColumnarAdd",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int8(k))
}

// Row is a single row of values. A nil entry is a null.
type Row []any

// ExprID is the stable identity of a named expression. Two attributes
// with the same name but different ids refer to different columns.
type ExprID uuid.UUID

func NewExprID() ExprID          { return ExprID(uuid.New()) }
func (id ExprID) String() string { return uuid.UUID(id).String() }

// Expression is a node of an expression tree. Expressions are immutable;
// rewrites build new trees.
type Expression interface {
	fmt.Stringer
	Kind() Kind
	Type() arrow.DataType
	Nullable() bool
	Children() []Expression
	// WithNewChildren returns a copy of the expression with its children
	// replaced, in the order returned by Children.
	WithNewChildren([]Expression) Expression
	// Eval evaluates the expression against a single row.
	Eval(Row) (any, error)
	Equals(Expression) bool

	isExpression()
}

// NamedExpression is an expression that produces a named output column.
type NamedExpression interface {
	Expression
	Name() string
	ID() ExprID
	Qualifier() []string
	Metadata() arrow.Metadata
	ToAttribute() *AttributeReference
}

type Literal struct {
	value any
	dt    arrow.DataType
}

// NewLiteral returns a literal of the given type. A nil value is a null
// literal.
func NewLiteral(value any, dt arrow.DataType) *Literal {
	return &Literal{value: value, dt: dt}
}

// Lit returns a literal whose type is inferred from the Go value. Plain
// ints become int64.
func Lit(value any) *Literal {
	if v, ok := value.(int); ok {
		value = int64(v)
	}
	return NewLiteral(value, TypeOf(value))
}

func (*Literal) isExpression()                             {}
func (*Literal) Kind() Kind                                { return KindLiteral }
func (l *Literal) Type() arrow.DataType                    { return l.dt }
func (l *Literal) Nullable() bool                          { return l.value == nil }
func (*Literal) Children() []Expression                    { return nil }
func (l *Literal) WithNewChildren([]Expression) Expression { return l }
func (l *Literal) Eval(Row) (any, error)                   { return l.value, nil }
func (l *Literal) Value() any                              { return l.value }

func (l *Literal) String() string {
	if l.value == nil {
		return "null"
	}
	return fmt.Sprint(l.value)
}

func (l *Literal) Equals(other Expression) bool {
	rhs, ok := other.(*Literal)
	if !ok {
		return false
	}
	return arrow.TypeEqual(l.dt, rhs.dt) && reflect.DeepEqual(l.value, rhs.value)
}

type AttributeReference struct {
	name      string
	dt        arrow.DataType
	nullable  bool
	id        ExprID
	qualifier []string
	metadata  arrow.Metadata
}

// NewAttribute returns an attribute with a fresh identity.
func NewAttribute(name string, dt arrow.DataType, nullable bool) *AttributeReference {
	return &AttributeReference{name: name, dt: dt, nullable: nullable, id: NewExprID()}
}

// AttributeFromField returns an attribute with a fresh identity
// describing field.
func AttributeFromField(field arrow.Field) *AttributeReference {
	a := NewAttribute(field.Name, field.Type, field.Nullable)
	a.metadata = field.Metadata
	return a
}

func (*AttributeReference) isExpression()                      {}
func (*AttributeReference) Kind() Kind                         { return KindAttributeReference }
func (a *AttributeReference) Type() arrow.DataType             { return a.dt }
func (a *AttributeReference) Nullable() bool                   { return a.nullable }
func (a *AttributeReference) Name() string                     { return a.name }
func (a *AttributeReference) ID() ExprID                       { return a.id }
func (a *AttributeReference) Qualifier() []string              { return a.qualifier }
func (a *AttributeReference) Metadata() arrow.Metadata         { return a.metadata }
func (*AttributeReference) Children() []Expression             { return nil }
func (a *AttributeReference) ToAttribute() *AttributeReference { return a }
func (a *AttributeReference) WithNewChildren([]Expression) Expression {
	return a
}

func (a *AttributeReference) Eval(Row) (any, error) {
	return nil, xerrors.Errorf("%w: cannot evaluate unbound attribute %s", compute.ErrUnboundReference, a)
}

// WithQualifier returns a copy of a with the same identity and the given
// qualifier.
func (a *AttributeReference) WithQualifier(qualifier ...string) *AttributeReference {
	out := *a
	out.qualifier = qualifier
	return &out
}

// WithMetadata returns a copy of a with the same identity and the given
// metadata.
func (a *AttributeReference) WithMetadata(md arrow.Metadata) *AttributeReference {
	out := *a
	out.metadata = md
	return &out
}

// Field describes the column a produces.
func (a *AttributeReference) Field() arrow.Field {
	return arrow.Field{Name: a.name, Type: a.dt, Nullable: a.nullable, Metadata: a.metadata}
}

func (a *AttributeReference) String() string {
	name := a.name
	if len(a.qualifier) > 0 {
		name = strings.Join(a.qualifier, ".") + "." + name
	}
	return fmt.Sprintf("%s#%s", name, a.id.String()[:8])
}

func (a *AttributeReference) Equals(other Expression) bool {
	rhs, ok := other.(*AttributeReference)
	if !ok {
		return false
	}
	return a.sameAs(rhs)
}

func (a *AttributeReference) sameAs(rhs *AttributeReference) bool {
	return a.id == rhs.id && a.name == rhs.name && a.nullable == rhs.nullable &&
		arrow.TypeEqual(a.dt, rhs.dt) && slices.Equal(a.qualifier, rhs.qualifier) &&
		metadataEqual(a.metadata, rhs.metadata)
}

// BoundReference refers to an input column by position.
type BoundReference struct {
	ordinal  int
	dt       arrow.DataType
	nullable bool
}

func NewBoundReference(ordinal int, dt arrow.DataType, nullable bool) *BoundReference {
	return &BoundReference{ordinal: ordinal, dt: dt, nullable: nullable}
}

func (*BoundReference) isExpression()                             {}
func (*BoundReference) Kind() Kind                                { return KindBoundReference }
func (b *BoundReference) Type() arrow.DataType                    { return b.dt }
func (b *BoundReference) Nullable() bool                          { return b.nullable }
func (b *BoundReference) Ordinal() int                            { return b.ordinal }
func (*BoundReference) Children() []Expression                    { return nil }
func (b *BoundReference) WithNewChildren([]Expression) Expression { return b }
func (b *BoundReference) String() string                          { return fmt.Sprintf("input[%d, %s]", b.ordinal, b.dt) }

func (b *BoundReference) Eval(row Row) (any, error) {
	if b.ordinal < 0 || b.ordinal >= len(row) {
		return nil, xerrors.Errorf("%w: ordinal %d out of range for row of width %d", compute.ErrInvalid, b.ordinal, len(row))
	}
	return row[b.ordinal], nil
}

func (b *BoundReference) Equals(other Expression) bool {
	rhs, ok := other.(*BoundReference)
	if !ok {
		return false
	}
	return b.ordinal == rhs.ordinal && b.nullable == rhs.nullable && arrow.TypeEqual(b.dt, rhs.dt)
}

type Alias struct {
	child     Expression
	name      string
	id        ExprID
	qualifier []string
	metadata  arrow.Metadata
}

// NewAlias names child with a fresh identity.
func NewAlias(child Expression, name string) *Alias {
	return &Alias{child: child, name: name, id: NewExprID()}
}

func (*Alias) isExpression()               {}
func (*Alias) Kind() Kind                  { return KindAlias }
func (a *Alias) Type() arrow.DataType      { return a.child.Type() }
func (a *Alias) Nullable() bool            { return a.child.Nullable() }
func (a *Alias) Name() string              { return a.name }
func (a *Alias) ID() ExprID                { return a.id }
func (a *Alias) Qualifier() []string       { return a.qualifier }
func (a *Alias) Metadata() arrow.Metadata  { return a.metadata }
func (a *Alias) Child() Expression         { return a.child }
func (a *Alias) Children() []Expression    { return []Expression{a.child} }
func (a *Alias) Eval(row Row) (any, error) { return a.child.Eval(row) }
func (a *Alias) String() string            { return fmt.Sprintf("%s AS %s#%s", a.child, a.name, a.id.String()[:8]) }

func (a *Alias) WithNewChildren(children []Expression) Expression {
	out := *a
	out.child = children[0]
	return &out
}

// WithMetadata returns a copy of a with the same identity and the given
// metadata.
func (a *Alias) WithMetadata(md arrow.Metadata) *Alias {
	out := *a
	out.metadata = md
	return &out
}

func (a *Alias) ToAttribute() *AttributeReference {
	return &AttributeReference{
		name:      a.name,
		dt:        a.child.Type(),
		nullable:  a.child.Nullable(),
		id:        a.id,
		qualifier: a.qualifier,
		metadata:  a.metadata,
	}
}

func (a *Alias) Equals(other Expression) bool {
	rhs, ok := other.(*Alias)
	if !ok {
		return false
	}
	return a.sameAs(rhs)
}

func (a *Alias) sameAs(rhs *Alias) bool {
	return a.id == rhs.id && a.name == rhs.name && slices.Equal(a.qualifier, rhs.qualifier) &&
		metadataEqual(a.metadata, rhs.metadata) && a.child.Equals(rhs.child)
}

type Add struct {
	left, right Expression
}

func NewAdd(left, right Expression) *Add { return &Add{left: left, right: right} }

func (*Add) isExpression()            {}
func (*Add) Kind() Kind               { return KindAdd }
func (a *Add) Type() arrow.DataType   { return a.left.Type() }
func (a *Add) Nullable() bool         { return a.left.Nullable() || a.right.Nullable() }
func (a *Add) Left() Expression       { return a.left }
func (a *Add) Right() Expression      { return a.right }
func (a *Add) Children() []Expression { return []Expression{a.left, a.right} }
func (a *Add) String() string         { return fmt.Sprintf("(%s + %s)", a.left, a.right) }

func (a *Add) WithNewChildren(children []Expression) Expression {
	return &Add{left: children[0], right: children[1]}
}

func (a *Add) Eval(row Row) (any, error) {
	lv, err := a.left.Eval(row)
	if err != nil {
		return nil, err
	}
	rv, err := a.right.Eval(row)
	if err != nil {
		return nil, err
	}
	return addValues(lv, rv)
}

func (a *Add) Equals(other Expression) bool {
	rhs, ok := other.(*Add)
	if !ok {
		return false
	}
	return a.left.Equals(rhs.left) && a.right.Equals(rhs.right)
}

// ScalarFunction applies a registered row-wise function to its
// arguments. It has no columnar form.
type ScalarFunction struct {
	def  *FunctionDef
	args []Expression
}

func (*ScalarFunction) isExpression()            {}
func (*ScalarFunction) Kind() Kind               { return KindScalarFunction }
func (f *ScalarFunction) Type() arrow.DataType   { return f.def.ReturnType }
func (f *ScalarFunction) Nullable() bool         { return true }
func (f *ScalarFunction) Name() string           { return f.def.Name }
func (f *ScalarFunction) Children() []Expression { return f.args }

func (f *ScalarFunction) WithNewChildren(children []Expression) Expression {
	return &ScalarFunction{def: f.def, args: children}
}

func (f *ScalarFunction) Eval(row Row) (any, error) {
	vals := make([]any, len(f.args))
	for i, arg := range f.args {
		v, err := arg.Eval(row)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return f.def.Fn(vals)
}

func (f *ScalarFunction) String() string {
	args := make([]string, len(f.args))
	for i, a := range f.args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", f.def.Name, strings.Join(args, ", "))
}

func (f *ScalarFunction) Equals(other Expression) bool {
	rhs, ok := other.(*ScalarFunction)
	if !ok {
		return false
	}
	return f.def.Name == rhs.def.Name && arrow.TypeEqual(f.def.ReturnType, rhs.def.ReturnType) &&
		equalExprs(f.args, rhs.args)
}

func equalExprs(left, right []Expression) bool {
	if len(left) != len(right) {
		return false
	}
	for i := range left {
		if !left[i].Equals(right[i]) {
			return false
		}
	}
	return true
}

func metadataEqual(left, right arrow.Metadata) bool {
	return slices.Equal(left.Keys(), right.Keys()) && slices.Equal(left.Values(), right.Values())
}

var (
	_ NamedExpression = (*AttributeReference)(nil)
	_ NamedExpression = (*Alias)(nil)
	_ Expression      = (*Literal)(nil)
	_ Expression      = (*BoundReference)(nil)
	_ Expression      = (*Add)(nil)
	_ Expression      = (*ScalarFunction)(nil)
)
