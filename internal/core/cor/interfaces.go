// Copyright 2025 YishanCoding
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cor provides the chain-of-responsibility building blocks used to
// express multi-step generation pipelines: a shared context that carries
// data, errors, and temp files between commands, atomic commands, and
// chains that pipe one command's output into the next command's input.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the context keys a chain uses to pipe the primary
// value between consecutive commands.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// Context is the shared state for one workflow execution. Commands read
// their inputs from it, record errors keyed by command name, and register
// temporary files for cleanup when the workflow ends.
type Context interface {
	SetContext(ctx context.Context)
	GetContext() context.Context

	Add(key string, value interface{}) Context
	Get(key string) interface{}
	Remove(key string)

	AddError(key string, err error)
	GetErrors() map[string]error
	HasErrors() bool

	AddTempFile(file string)
	GetTempFiles() []string

	// Close removes all tracked temporary files. Defer it at the start of
	// a workflow run.
	Close()
}

// Command is an atomic unit of work within a chain.
type Command interface {
	Execute(context Context)
	GetName() string
	GetInputParam() string
	GetOutputParam() string
	// IsExecutable is a precondition check run before Execute.
	IsExecutable(context Context) bool
	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is a sequence of commands and is itself a Command, so chains nest.
type Chain interface {
	Command
	ContinueOnFailure(bool) Chain
	AddCommand(command Command) Chain
}
