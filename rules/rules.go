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

// Package rules rewrites physical plans: it replaces row operators with
// their columnar counterparts and inserts the transitions needed between
// row and columnar operators.
package rules

import (
	"fmt"
	"os"
	"strings"

	"github.com/zeroshade/colexec/plan"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLogger writes warnings and errors to stderr.
var DefaultLogger = NewLogger(zapcore.Lock(os.Stderr), zapcore.WarnLevel)

// NewLogger returns a console logger writing entries at or above level
// to w.
func NewLogger(w zapcore.WriteSyncer, level zapcore.LevelEnabler) *zap.Logger {
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(enc, w, level)).Named("colexec")
}

// Rule rewrites a plan. Rules never fail: anything they cannot rewrite is
// left as it was.
type Rule interface {
	Name() string
	Apply(plan.Node) plan.Node
}

type funcRule struct {
	name string
	fn   func(plan.Node) plan.Node
}

func (r funcRule) Name() string                { return r.name }
func (r funcRule) Apply(n plan.Node) plan.Node { return r.fn(n) }

// NewRule wraps fn as a Rule.
func NewRule(name string, fn func(plan.Node) plan.Node) Rule {
	return funcRule{name: name, fn: fn}
}

// Extensions collects the rules run around transition insertion.
type Extensions struct {
	pre  []Rule
	post []Rule
}

// InjectPreColumnar registers r to run before transitions are inserted.
func (e *Extensions) InjectPreColumnar(r Rule) { e.pre = append(e.pre, r) }

// InjectPostColumnar registers r to run after transitions are inserted.
func (e *Extensions) InjectPostColumnar(r Rule) { e.post = append(e.post, r) }

func (e *Extensions) PreColumnarRules() []Rule  { return e.pre }
func (e *Extensions) PostColumnarRules() []Rule { return e.post }

// Apply runs the pre-columnar rules, inserts the transitions needed to
// produce rows at the root, then runs the post-columnar rules.
func (e *Extensions) Apply(n plan.Node) plan.Node {
	for _, r := range e.pre {
		n = r.Apply(n)
	}
	n = InsertTransitions{}.Apply(n)
	for _, r := range e.post {
		n = r.Apply(n)
	}
	return n
}

// Install registers the columnar replacement rule on ext.
func Install(ext *Extensions, logger *zap.Logger) {
	ext.InjectPreColumnar(&ReplaceWithColumnar{Logger: logger})
}

func nodeName(n plan.Node) string {
	name := fmt.Sprintf("%T", n)
	return name[strings.LastIndexByte(name, '.')+1:]
}
