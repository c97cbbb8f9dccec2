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

	"github.com/blinklabs-io/lovepoem/database/plugin"
	"github.com/blinklabs-io/lovepoem/database/plugin/pin"
	"github.com/blinklabs-io/lovepoem/token"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultMetadataDir = "metadata"
	DefaultImagesDir   = "images"
)

// Normalizer makes sure every metadata record points at pinned content
type Normalizer struct {
	store       pin.PinStore
	logger      *slog.Logger
	metrics     *Metrics
	metadataDir string
	imagesDir   string
	gateway     string
}

type NormalizerOptionFunc func(*Normalizer)

// WithNormalizerLogger specifies the logger object to use for logging messages
func WithNormalizerLogger(logger *slog.Logger) NormalizerOptionFunc {
	return func(n *Normalizer) {
		n.logger = logger
	}
}

// WithNormalizerMetrics specifies the metrics to update
func WithNormalizerMetrics(metrics *Metrics) NormalizerOptionFunc {
	return func(n *Normalizer) {
		n.metrics = metrics
	}
}

// WithMetadataDir specifies the directory holding metadata documents
func WithMetadataDir(dir string) NormalizerOptionFunc {
	return func(n *Normalizer) {
		n.metadataDir = dir
	}
}

// WithImagesDir specifies the directory holding token images
func WithImagesDir(dir string) NormalizerOptionFunc {
	return func(n *Normalizer) {
		n.imagesDir = dir
	}
}

// WithGateway specifies the gateway used in durable image URLs
func WithGateway(gateway string) NormalizerOptionFunc {
	return func(n *Normalizer) {
		n.gateway = gateway
	}
}

func NewNormalizer(
	store pin.PinStore,
	opts ...NormalizerOptionFunc,
) *Normalizer {
	n := &Normalizer{
		store:       store,
		metadataDir: DefaultMetadataDir,
		imagesDir:   DefaultImagesDir,
		gateway:     token.DefaultGateway,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = plugin.LoggerOrDiscard(n.logger)
	if n.metrics == nil {
		n.metrics = NewMetrics(nil)
	}
	return n
}

// MetadataDir returns the directory holding metadata documents
func (n *Normalizer) MetadataDir() string {
	return n.metadataDir
}

// Normalize returns the record for id with a verified durable image URL. A
// record whose image already verifies is returned untouched; otherwise the
// image is pinned and the rewritten record is stored before it is returned.
// Failures are *ItemError values and leave the document unchanged
func (n *Normalizer) Normalize(
	ctx context.Context,
	id int64,
) (_ *token.Record, err error) {
	ctx, span := tracer.Start(
		ctx,
		"normalize",
		trace.WithAttributes(attribute.Int64("token.id", id)),
	)
	defer func() {
		if err != nil {
			n.metrics.records.WithLabelValues("failed").Inc()
		}
		endSpan(span, err)
	}()
	rec, err := token.Read(n.metadataDir, id)
	if err != nil {
		return nil, newItemError(ErrMetadataRead, id, err)
	}
	if hash, ok := token.ContentHash(rec.Image); ok {
		verified, err := n.store.Verify(ctx, hash)
		if err != nil {
			n.logger.Warn(
				fmt.Sprintf("image %d: pin status query failed, treating as unverified: %s", id, err),
				"component", "pipeline",
			)
		}
		if verified {
			n.logger.Debug(
				fmt.Sprintf("image %d already pinned as %s", id, hash),
				"component", "pipeline",
			)
			n.metrics.records.WithLabelValues("verified").Inc()
			span.SetAttributes(attribute.Bool("pin.verified", true))
			return rec, nil
		}
	}
	imagePath := token.ImagePath(n.imagesDir, id)
	res, err := pin.Upload(ctx, n.store, imagePath)
	if err != nil {
		return nil, newItemError(ErrUpload, id, err)
	}
	if !res.Verified {
		n.logger.Warn(
			fmt.Sprintf("image %d pinned as %s but not yet reported as pinned", id, res.ContentHash),
			"component", "pipeline",
		)
	}
	rec.Image = token.ImageURL(n.gateway, res.ContentHash, id)
	if err := token.Write(n.metadataDir, rec); err != nil {
		return nil, newItemError(ErrMetadataWrite, id, err)
	}
	n.logger.Info(
		fmt.Sprintf("image %d pinned as %s", id, res.ContentHash),
		"component", "pipeline",
	)
	n.metrics.records.WithLabelValues("uploaded").Inc()
	span.SetAttributes(attribute.String("pin.hash", res.ContentHash))
	return rec, nil
}

// NormalizeResult holds the records that normalized and the failures of the rest
type NormalizeResult struct {
	Records []*token.Record
	Failed  []*ItemError
}

// NormalizeAll normalizes every id in order. A failure is logged and recorded
// and never stops the others; only cancellation of ctx ends the loop early
func (n *Normalizer) NormalizeAll(
	ctx context.Context,
	ids []int64,
) (*NormalizeResult, error) {
	ret := &NormalizeResult{
		Records: make([]*token.Record, 0, len(ids)),
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return ret, err
		}
		rec, err := n.Normalize(ctx, id)
		if err != nil {
			itemErr, ok := err.(*ItemError)
			if !ok {
				itemErr = newItemError(ErrMetadataRead, id, err)
			}
			n.logger.Error(
				fmt.Sprintf("skipping token: %s", itemErr),
				"component", "pipeline",
			)
			ret.Failed = append(ret.Failed, itemErr)
			continue
		}
		ret.Records = append(ret.Records, rec)
	}
	return ret, nil
}
