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

import "errors"

var (
	// ErrUnsupportedOperation is returned when an expression is asked to
	// evaluate over a batch but has no columnar evaluator.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrUnboundReference is returned when an attribute cannot be located
	// in the schema it is being bound against, or when an unbound
	// attribute is evaluated.
	ErrUnboundReference = errors.New("reference not found")
	// ErrTypeMismatch is returned by kernels invoked with operands of a
	// shape or type they do not recognize.
	ErrTypeMismatch = errors.New("evaluation type mismatch")
	ErrInvalid      = errors.New("invalid")
)
