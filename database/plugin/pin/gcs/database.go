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

package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/blinklabs-io/lovepoem/database/plugin/pin"
	"github.com/blinklabs-io/lovepoem/database/plugin/pin/internal/manifest"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/api/option"
)

const pinnedObjectName = ".pinned"

// PinStoreGCS stores pinned content in a Google Cloud Storage bucket under
// <prefix><hash>/<name>. A <prefix><hash>/.pinned object marks a complete pin
type PinStoreGCS struct {
	promRegistry    prometheus.Registerer
	logger          *GcsLogger
	metrics         *pin.Metrics
	client          *storage.Client
	bucket          *storage.BucketHandle
	bucketName      string
	prefix          string
	credentialsFile string
}

// NewWithOptions creates a new GCS-backed pin store using options. The client
// is not created until Start
func NewWithOptions(opts ...PinStoreGCSOptionFunc) (*PinStoreGCS, error) {
	db := &PinStoreGCS{}
	for _, opt := range opts {
		opt(db)
	}
	if db.logger == nil {
		db.logger = NewGcsLogger(nil)
	}
	db.metrics = pin.NewMetrics(db.promRegistry, "gcs")
	return db, nil
}

// ValidateCredentials checks that a credentials file exists and is readable.
// An empty path means application default credentials
func ValidateCredentials(credentialsFile string) error {
	if credentialsFile == "" {
		return nil
	}
	if _, err := os.Stat(credentialsFile); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf(
				"GCS credentials file does not exist: %s",
				credentialsFile,
			)
		}
		return fmt.Errorf(
			"failed to access GCS credentials file %s: %w",
			credentialsFile,
			err,
		)
	}
	f, err := os.Open(credentialsFile)
	if err != nil {
		return fmt.Errorf(
			"GCS credentials file is not readable: %s: %w",
			credentialsFile,
			err,
		)
	}
	return f.Close()
}

// Start implements the plugin.Plugin interface.
func (d *PinStoreGCS) Start() error {
	if d.bucketName == "" {
		return errors.New("gcs pin: bucket not set")
	}
	if d.credentialsFile != "" {
		if err := ValidateCredentials(d.credentialsFile); err != nil {
			return err
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	clientOpts := []option.ClientOption{
		storage.WithDisabledClientMetrics(),
	}
	if d.credentialsFile != "" {
		clientOpts = append(
			clientOpts,
			option.WithCredentialsFile(d.credentialsFile),
		)
	}
	client, err := storage.NewGRPCClient(ctx, clientOpts...)
	if err != nil {
		return fmt.Errorf(
			"gcs pin: failed in creating storage client: %w",
			err,
		)
	}
	d.client = client
	d.bucket = client.Bucket(d.bucketName)
	d.logger.Infof("gcs pin: using bucket %s", d.bucketName)
	return nil
}

// Stop implements the plugin.Plugin interface.
func (d *PinStoreGCS) Stop() error {
	return d.Close()
}

// Close closes the GCS client.
func (d *PinStoreGCS) Close() error {
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	d.bucket = nil
	return err
}

// Returns the bucket handle.
func (d *PinStoreGCS) Bucket() *storage.BucketHandle {
	return d.bucket
}

func (d *PinStoreGCS) objectName(hash string, name string) string {
	return d.prefix + hash + "/" + name
}

func (d *PinStoreGCS) Pin(
	ctx context.Context,
	localPath string,
) (string, error) {
	hash, size, err := d.pin(ctx, localPath)
	if err != nil {
		d.metrics.PinErrors.Inc()
		d.logger.Errorf("gcs pin: failed to pin %s: %v", localPath, err)
		return "", fmt.Errorf("%w: %w", pin.ErrUpload, err)
	}
	d.metrics.Pins.Inc()
	d.metrics.PinBytes.Add(float64(size))
	d.logger.Debugf("gcs pin: pinned %s as %s (%d bytes)", localPath, hash, size)
	return hash, nil
}

func (d *PinStoreGCS) pin(
	ctx context.Context,
	localPath string,
) (string, int64, error) {
	if d.bucket == nil {
		return "", 0, errors.New("gcs pin: not started")
	}
	m, err := manifest.Build(localPath)
	if err != nil {
		return "", 0, err
	}
	pinned, err := d.exists(ctx, d.objectName(m.Hash, pinnedObjectName))
	if err != nil {
		return "", 0, err
	}
	if pinned {
		return m.Hash, 0, nil
	}
	var size int64
	for _, entry := range m.Entries {
		n, err := d.upload(ctx, d.objectName(m.Hash, entry.Name), entry.Path)
		if err != nil {
			return "", 0, err
		}
		size += n
	}
	w := d.bucket.Object(d.objectName(m.Hash, pinnedObjectName)).
		NewWriter(ctx)
	if _, err := io.WriteString(w, m.Hash); err != nil {
		_ = w.Close()
		return "", 0, err
	}
	if err := w.Close(); err != nil {
		return "", 0, err
	}
	return m.Hash, size, nil
}

func (d *PinStoreGCS) upload(
	ctx context.Context,
	objectName string,
	path string,
) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	w := d.bucket.Object(objectName).NewWriter(ctx)
	n, err := io.Copy(w, f)
	if err != nil {
		_ = w.Close()
		return 0, fmt.Errorf("write %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", objectName, err)
	}
	return n, nil
}

func (d *PinStoreGCS) Verify(
	ctx context.Context,
	hash string,
) (bool, error) {
	if !manifest.Valid(hash) {
		d.metrics.ObserveVerify(false, nil)
		return false, nil
	}
	if d.bucket == nil {
		err := errors.New("gcs pin: not started")
		d.metrics.ObserveVerify(false, err)
		return false, fmt.Errorf("%w: %w", pin.ErrVerificationQuery, err)
	}
	pinned, err := d.exists(ctx, d.objectName(hash, pinnedObjectName))
	d.metrics.ObserveVerify(pinned, err)
	if err != nil {
		d.logger.Warningf("gcs pin: status query for %s failed: %v", hash, err)
		return false, fmt.Errorf("%w: %w", pin.ErrVerificationQuery, err)
	}
	return pinned, nil
}

func (d *PinStoreGCS) exists(
	ctx context.Context,
	objectName string,
) (bool, error) {
	_, err := d.bucket.Object(objectName).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
