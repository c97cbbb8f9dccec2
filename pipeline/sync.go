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
	"errors"
	"fmt"

	"github.com/blinklabs-io/lovepoem/token"
)

var errNoExecutor = errors.New("no executor for a non dry-run sync")

// SyncResult holds the output of every stage of a sync
type SyncResult struct {
	Normalized *NormalizeResult
	Statements []StatementPair
	// Report is nil for a dry run
	Report *Report
}

// Sync normalizes every metadata document, compiles the records into
// statements against tables and executes them. With dryRun set nothing is
// submitted and the compiled statements are only returned
func Sync(
	ctx context.Context,
	normalizer *Normalizer,
	executor *Executor,
	tables Tables,
	dryRun bool,
) (*SyncResult, error) {
	if executor == nil && !dryRun {
		return nil, errNoExecutor
	}
	ids, err := token.ListIDs(normalizer.MetadataDir(), normalizer.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadataRead, err)
	}
	normalizer.logger.Info(
		fmt.Sprintf("normalizing %d metadata documents", len(ids)),
		"component", "pipeline",
	)
	normalized, err := normalizer.NormalizeAll(ctx, ids)
	if err != nil {
		return &SyncResult{Normalized: normalized}, err
	}
	pairs, err := Compile(
		normalized.Records,
		tables.Main.Name,
		tables.Attributes.Name,
	)
	if err != nil {
		return &SyncResult{Normalized: normalized}, err
	}
	ret := &SyncResult{
		Normalized: normalized,
		Statements: pairs,
	}
	if dryRun {
		return ret, nil
	}
	ret.Report = executor.Execute(ctx, pairs)
	executor.logger.Info(
		fmt.Sprintf(
			"sync finished: %d records, %d skipped, %d statements applied, %d failed",
			len(normalized.Records),
			len(normalized.Failed),
			ret.Report.Succeeded,
			ret.Report.Failed,
		),
		"component", "pipeline",
	)
	return ret, ret.Report.Err
}
