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

package plan

import (
	"fmt"

	"github.com/apache/arrow/go/v8/arrow"
	"github.com/pkg/errors"
	"github.com/zeroshade/colexec/expr"
	"github.com/zeroshade/colexec/task"
)

// Scan is an in-memory source: each partition is a list of record
// batches. It can be read both row by row and batch by batch.
type Scan struct {
	name       string
	schema     *arrow.Schema
	output     expr.AttributeSeq
	partitions [][]arrow.Record
}

// NewScan returns a scan over partitions, every batch of which must have
// the given schema. The scan retains the batches; call Release when the
// scan is no longer needed.
func NewScan(name string, schema *arrow.Schema, partitions [][]arrow.Record) (*Scan, error) {
	for p, recs := range partitions {
		for _, rec := range recs {
			if !rec.Schema().Equal(schema) {
				return nil, errors.Wrapf(ErrSchemaMismatch,
					"batch in partition %d had schema %s which did not match scan %s's: %s", p, rec.Schema(), name, schema)
			}
		}
	}

	output := make(expr.AttributeSeq, len(schema.Fields()))
	for i, f := range schema.Fields() {
		output[i] = expr.AttributeFromField(f)
	}

	for _, recs := range partitions {
		for _, rec := range recs {
			rec.Retain()
		}
	}
	return &Scan{name: name, schema: schema, output: output, partitions: partitions}, nil
}

func (s *Scan) Release() {
	for _, recs := range s.partitions {
		for _, rec := range recs {
			rec.Release()
		}
	}
	s.partitions = nil
}

func (s *Scan) String() string              { return fmt.Sprintf("Scan %s %s", s.name, s.output) }
func (*Scan) Children() []Node              { return nil }
func (s *Scan) WithNewChildren([]Node) Node { return s }
func (s *Scan) Output() expr.AttributeSeq   { return s.output }
func (s *Scan) NumPartitions() int          { return len(s.partitions) }
func (*Scan) SupportsColumnar() bool        { return true }
func (*Scan) SupportsRows() bool            { return true }
func (s *Scan) Equals(other Node) bool      { return Node(s) == other }

func (s *Scan) ExecuteColumnar(_ *task.Context, partition int) (BatchIterator, error) {
	if err := s.checkPartition(partition); err != nil {
		return nil, err
	}
	return NewRecordIterator(s.partitions[partition]), nil
}

func (s *Scan) Execute(_ *task.Context, partition int) (RowIterator, error) {
	if err := s.checkPartition(partition); err != nil {
		return nil, err
	}
	return &batchRowIterator{input: NewRecordIterator(s.partitions[partition])}, nil
}

func (s *Scan) checkPartition(partition int) error {
	if partition < 0 || partition >= len(s.partitions) {
		return fmt.Errorf("scan %s has no partition %d", s.name, partition)
	}
	return nil
}
