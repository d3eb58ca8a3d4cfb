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

// Package session prepares plans with the registered rules and runs them
// one task per partition.
package session

import (
	"context"

	"github.com/apache/arrow/go/v8/arrow"
	"github.com/apache/arrow/go/v8/arrow/memory"
	"github.com/zeroshade/colexec/compute"
	"github.com/zeroshade/colexec/config"
	"github.com/zeroshade/colexec/expr"
	"github.com/zeroshade/colexec/plan"
	"github.com/zeroshade/colexec/rules"
	"github.com/zeroshade/colexec/task"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Session struct {
	cfg      config.Config
	mem      memory.Allocator
	logger   *zap.Logger
	ext      *rules.Extensions
	registry *expr.Registry
}

type Option func(*Session)

// WithAllocator sets the allocator batches are built with.
func WithAllocator(mem memory.Allocator) Option {
	return func(s *Session) { s.mem = mem }
}

// WithLogger sets where rewrite diagnostics are written.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New returns a session configured by cfg. When columnar processing is
// enabled the columnar replacement rule is installed first.
func New(cfg config.Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		cfg:      cfg,
		mem:      memory.DefaultAllocator,
		logger:   rules.DefaultLogger,
		ext:      &rules.Extensions{},
		registry: &expr.Registry{},
	}
	for _, o := range opts {
		o(s)
	}

	if cfg.Columnar.Enabled {
		rules.Install(s.ext, s.logger)
	}
	return s, nil
}

func (s *Session) Config() config.Config         { return s.cfg }
func (s *Session) Extensions() *rules.Extensions { return s.ext }
func (s *Session) Registry() *expr.Registry      { return s.registry }

// Prepare runs the registered rules over n and inserts the transitions
// needed to read rows from the root.
func (s *Session) Prepare(n plan.Node) plan.Node {
	return s.ext.Apply(n)
}

func (s *Session) execCtx(ctx context.Context) context.Context {
	return compute.SetExecCtx(ctx, s.cfg.ExecCtx(s.mem))
}

// Collect prepares n, runs every partition and returns all rows, ordered
// by partition.
func (s *Session) Collect(ctx context.Context, n plan.Node) ([]expr.Row, error) {
	prepared := s.Prepare(n)
	if !prepared.SupportsRows() {
		prepared = rules.InsertTransitions{}.Apply(prepared)
	}

	parts := make([][]expr.Row, prepared.NumPartitions())
	err := s.runPartitions(ctx, len(parts), func(tctx *task.Context) error {
		rows, err := collectRows(tctx, prepared)
		parts[tctx.Partition()] = rows
		return err
	})
	if err != nil {
		return nil, err
	}

	var out []expr.Row
	for _, rows := range parts {
		out = append(out, rows...)
	}
	return out, nil
}

// CollectRecords prepares n to produce batches, runs every partition and
// returns all batches ordered by partition. The caller must release them.
func (s *Session) CollectRecords(ctx context.Context, n plan.Node) ([]arrow.Record, error) {
	prepared := rules.InsertTransitions{Columnar: true}.Apply(s.Prepare(n))

	parts := make([][]arrow.Record, prepared.NumPartitions())
	err := s.runPartitions(ctx, len(parts), func(tctx *task.Context) error {
		recs, err := collectRecords(tctx, prepared)
		parts[tctx.Partition()] = recs
		return err
	})

	var out []arrow.Record
	for _, recs := range parts {
		out = append(out, recs...)
	}
	if err != nil {
		for _, r := range out {
			r.Release()
		}
		return nil, err
	}
	return out, nil
}

// runPartitions runs fn once per partition with at most Parallelism
// partitions in flight. Each task completes when fn returns.
func (s *Session) runPartitions(ctx context.Context, n int, fn func(*task.Context) error) error {
	g, gctx := errgroup.WithContext(s.execCtx(ctx))
	g.SetLimit(s.cfg.Parallelism)
	for p := 0; p < n; p++ {
		p := p
		g.Go(func() error {
			tctx := task.New(gctx, p)
			defer tctx.MarkCompleted()
			return fn(tctx)
		})
	}
	return g.Wait()
}

func collectRows(tctx *task.Context, n plan.Node) ([]expr.Row, error) {
	it, err := n.Execute(tctx, tctx.Partition())
	if err != nil {
		return nil, err
	}

	var out []expr.Row
	for it.HasNext() {
		row, err := it.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, it.Err()
}

func collectRecords(tctx *task.Context, n plan.Node) ([]arrow.Record, error) {
	it, err := n.ExecuteColumnar(tctx, tctx.Partition())
	if err != nil {
		return nil, err
	}

	var out []arrow.Record
	for it.HasNext() {
		rec, err := it.Next()
		if err != nil {
			return out, err
		}
		rec.Retain()
		out = append(out, rec)
	}
	return out, it.Err()
}
