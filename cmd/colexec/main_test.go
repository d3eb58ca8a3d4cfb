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

package main

import (
	"bytes"
	"testing"

	"github.com/apache/arrow/go/v8/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildScan(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	scan, err := buildScan(mem, []int64{1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	defer scan.Release()

	assert.Equal(t, 3, scan.NumPartitions())
	assert.Equal(t, "col", scan.Output()[0].Name())
}

func TestRun(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--bias", "1", "--partitions", "2"})
	require.NoError(t, rootCmd.Execute())

	got := out.String()
	assert.Contains(t, got, "== Prepared ==")
	assert.Contains(t, got, "ColumnarProject")
	assert.Contains(t, got, "col_plus_one")
	for _, v := range []string{"102", "202", "302"} {
		assert.Contains(t, got, v)
	}
}
