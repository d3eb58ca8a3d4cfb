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
	"context"
	"sync"

	"github.com/apache/arrow/go/v8/arrow/memory"
)

// DefaultBatchSize is the number of rows per batch produced when rows are
// converted into columnar batches.
const DefaultBatchSize int64 = 4096

var (
	defaultExecCtx     *ExecCtx
	initDefaultExecCtx sync.Once
)

// ExecCtx carries the settings used while evaluating expressions over
// batches.
type ExecCtx struct {
	Mem memory.Allocator
	// AddBias is added to every element produced by the vectorized add
	// kernel. It is zero outside of tests that need to tell the columnar
	// path apart from the row-wise one.
	AddBias   int64
	BatchSize int64
}

func DefaultExecCtx() *ExecCtx {
	initDefaultExecCtx.Do(func() {
		defaultExecCtx = &ExecCtx{
			Mem:       memory.DefaultAllocator,
			BatchSize: DefaultBatchSize,
		}
	})
	return defaultExecCtx
}

type ctxExecKey struct{}

func SetExecCtx(ctx context.Context, e *ExecCtx) context.Context {
	return context.WithValue(ctx, ctxExecKey{}, e)
}

// GetExecCtx returns the ExecCtx stored on ctx, or the default one.
func GetExecCtx(ctx context.Context) *ExecCtx {
	e, ok := ctx.Value(ctxExecKey{}).(*ExecCtx)
	if ok && e != nil {
		return e
	}
	return DefaultExecCtx()
}
