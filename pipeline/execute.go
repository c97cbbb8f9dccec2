// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/blinklabs-io/lovepoem/database/plugin"
	"github.com/blinklabs-io/lovepoem/database/plugin/table"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	tableKindMain       = "main"
	tableKindAttributes = "attributes"
)

// StatementResult is the outcome of a single batch statement
type StatementResult struct {
	ID        int64
	Table     string
	Statement table.Statement
	Receipt   *table.Receipt
	Err       error
}

// Report summarizes a batch. Err is only set when the batch was cancelled
type Report struct {
	Results   []StatementResult
	Succeeded int
	Failed    int
	Err       error
}

// Failures returns the results of the statements that did not apply
func (r *Report) Failures() []StatementResult {
	var ret []StatementResult
	for _, res := range r.Results {
		if res.Err != nil {
			ret = append(ret, res)
		}
	}
	return ret
}

// Executor submits compiled statements one at a time
type Executor struct {
	store   table.TableStore
	logger  *slog.Logger
	metrics *Metrics
}

type ExecutorOptionFunc func(*Executor)

// WithExecutorLogger specifies the logger object to use for logging messages
func WithExecutorLogger(logger *slog.Logger) ExecutorOptionFunc {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithExecutorMetrics specifies the metrics to update
func WithExecutorMetrics(metrics *Metrics) ExecutorOptionFunc {
	return func(e *Executor) {
		e.metrics = metrics
	}
}

func NewExecutor(
	store table.TableStore,
	opts ...ExecutorOptionFunc,
) *Executor {
	e := &Executor{
		store: store,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = plugin.LoggerOrDiscard(e.logger)
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	return e
}

// Execute applies pairs in order. Each main statement is finalized before its
// attribute statements are submitted, and each of those before the next.
// A failed statement is logged and recorded in the report and the batch
// carries on
func (e *Executor) Execute(
	ctx context.Context,
	pairs []StatementPair,
) *Report {
	ctx, span := tracer.Start(
		ctx,
		"execute",
		trace.WithAttributes(attribute.Int("batch.records", len(pairs))),
	)
	report := &Report{}
	defer func() {
		span.SetAttributes(
			attribute.Int("batch.succeeded", report.Succeeded),
			attribute.Int("batch.failed", report.Failed),
		)
		endSpan(span, report.Err)
	}()
	for _, pair := range pairs {
		if !e.run(ctx, report, pair.ID, tableKindMain, pair.Main) {
			return report
		}
		for _, stmt := range pair.Attributes {
			if !e.run(ctx, report, pair.ID, tableKindAttributes, stmt) {
				return report
			}
		}
	}
	return report
}

// run executes one statement and reports whether the batch may continue
func (e *Executor) run(
	ctx context.Context,
	report *Report,
	id int64,
	kind string,
	stmt table.Statement,
) bool {
	if err := ctx.Err(); err != nil {
		report.Err = err
		return false
	}
	start := time.Now()
	receipt, err := submitAndWait(ctx, e.store, stmt)
	if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
		report.Err = ctxErr
		return false
	}
	e.metrics.waitTime.Observe(time.Since(start).Seconds())
	e.metrics.statements.WithLabelValues(kind, resultLabel(err)).Inc()
	res := StatementResult{
		ID:        id,
		Table:     kind,
		Statement: stmt,
		Receipt:   receipt,
	}
	if err != nil {
		res.Err = newItemError(ErrStatement, id, err)
		report.Failed++
		e.logger.Error(
			fmt.Sprintf("%s statement failed: %s", kind, res.Err),
			"component", "pipeline",
			"sql", stmt.Literal(),
		)
	} else {
		report.Succeeded++
		e.logger.Debug(
			fmt.Sprintf(
				"%s statement for token %d applied in block %d",
				kind,
				id,
				receipt.BlockNumber,
			),
			"component", "pipeline",
			"txn", receipt.TransactionHash,
		)
	}
	report.Results = append(report.Results, res)
	return true
}
