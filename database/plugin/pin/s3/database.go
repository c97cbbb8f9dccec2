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

package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/blinklabs-io/lovepoem/database/plugin/pin"
	"github.com/blinklabs-io/lovepoem/database/plugin/pin/internal/manifest"
	"github.com/prometheus/client_golang/prometheus"
)

const pinnedKeyName = ".pinned"

// PinStoreS3 stores pinned content in an S3 bucket under <prefix><hash>/<name>.
// A <prefix><hash>/.pinned object marks a complete pin
type PinStoreS3 struct {
	promRegistry prometheus.Registerer
	logger       *S3Logger
	metrics      *pin.Metrics
	client       *s3.Client
	endpoint     string
	bucket       string
	prefix       string
	region       string
	timeout      time.Duration
}

// NewWithOptions creates a new S3-backed pin store using options.
func NewWithOptions(opts ...PinStoreS3OptionFunc) (*PinStoreS3, error) {
	db := &PinStoreS3{}
	for _, opt := range opts {
		opt(db)
	}
	if db.logger == nil {
		db.logger = NewS3Logger(nil)
	}
	db.metrics = pin.NewMetrics(db.promRegistry, "s3")
	// Note: AWS config loading and validation happens in Start()
	return db, nil
}

func (d *PinStoreS3) opContext(
	ctx context.Context,
) (context.Context, context.CancelFunc) {
	timeout := d.timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// Start implements the plugin.Plugin interface.
func (d *PinStoreS3) Start() error {
	if d.bucket == "" {
		return errors.New("s3 pin: bucket not set")
	}
	ctx, cancel := d.opContext(context.Background())
	defer cancel()
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("s3 pin: load default AWS config: %w", err)
	}
	if d.region != "" {
		awsCfg.Region = d.region
	}
	d.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if d.endpoint != "" {
			o.BaseEndpoint = aws.String(d.endpoint)
			o.UsePathStyle = true
		}
	})
	d.logger.Infof("s3 pin: using bucket %s", d.bucket)
	return nil
}

// Stop implements the plugin.Plugin interface.
func (d *PinStoreS3) Stop() error {
	// S3 client doesn't need explicit closing
	return nil
}

func (d *PinStoreS3) Close() error {
	return d.Stop()
}

func (d *PinStoreS3) Client() *s3.Client {
	return d.client
}

func (d *PinStoreS3) Bucket() string {
	return d.bucket
}

func (d *PinStoreS3) fullKey(hash string, name string) string {
	return d.prefix + hash + "/" + name
}

func (d *PinStoreS3) Pin(
	ctx context.Context,
	localPath string,
) (string, error) {
	hash, size, err := d.pin(ctx, localPath)
	if err != nil {
		d.metrics.PinErrors.Inc()
		d.logger.Errorf("s3 pin: failed to pin %s: %v", localPath, err)
		return "", fmt.Errorf("%w: %w", pin.ErrUpload, err)
	}
	d.metrics.Pins.Inc()
	d.metrics.PinBytes.Add(float64(size))
	d.logger.Debugf("s3 pin: pinned %s as %s (%d bytes)", localPath, hash, size)
	return hash, nil
}

func (d *PinStoreS3) pin(
	ctx context.Context,
	localPath string,
) (string, int64, error) {
	if d.client == nil {
		return "", 0, errors.New("s3 pin: not started")
	}
	m, err := manifest.Build(localPath)
	if err != nil {
		return "", 0, err
	}
	pinned, err := d.exists(ctx, d.fullKey(m.Hash, pinnedKeyName))
	if err != nil {
		return "", 0, err
	}
	if pinned {
		return m.Hash, 0, nil
	}
	var size int64
	for _, entry := range m.Entries {
		data, err := os.ReadFile(entry.Path)
		if err != nil {
			return "", 0, err
		}
		if err := d.put(ctx, d.fullKey(m.Hash, entry.Name), data); err != nil {
			return "", 0, err
		}
		size += int64(len(data))
	}
	if err := d.put(ctx, d.fullKey(m.Hash, pinnedKeyName), []byte(m.Hash)); err != nil {
		return "", 0, err
	}
	return m.Hash, size, nil
}

func (d *PinStoreS3) put(ctx context.Context, key string, value []byte) error {
	opCtx, cancel := d.opContext(ctx)
	defer cancel()
	_, err := d.client.PutObject(opCtx, &s3.PutObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(value),
	})
	if err != nil {
		return fmt.Errorf("s3 put %q: %w", key, err)
	}
	return nil
}

func (d *PinStoreS3) Verify(
	ctx context.Context,
	hash string,
) (bool, error) {
	if !manifest.Valid(hash) {
		d.metrics.ObserveVerify(false, nil)
		return false, nil
	}
	if d.client == nil {
		err := errors.New("s3 pin: not started")
		d.metrics.ObserveVerify(false, err)
		return false, fmt.Errorf("%w: %w", pin.ErrVerificationQuery, err)
	}
	pinned, err := d.exists(ctx, d.fullKey(hash, pinnedKeyName))
	d.metrics.ObserveVerify(pinned, err)
	if err != nil {
		d.logger.Warningf("s3 pin: status query for %s failed: %v", hash, err)
		return false, fmt.Errorf("%w: %w", pin.ErrVerificationQuery, err)
	}
	return pinned, nil
}

func (d *PinStoreS3) exists(ctx context.Context, key string) (bool, error) {
	opCtx, cancel := d.opContext(ctx)
	defer cancel()
	_, err := d.client.HeadObject(opCtx, &s3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	var noSuchKey *s3types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *s3types.NotFound
	return errors.As(err, &notFound)
}
