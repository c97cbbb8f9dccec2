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

package badger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blinklabs-io/lovepoem/database/plugin"
	"github.com/blinklabs-io/lovepoem/database/plugin/pin"
	"github.com/blinklabs-io/lovepoem/database/plugin/pin/internal/manifest"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	contentKeyPrefix = "content/"
	pinnedKeyPrefix  = "pinned/"
)

// PinStoreBadger keeps pinned content in a local badger database. Content is
// stored under content/<hash>/<name> and a pinned/<hash> marker is written once
// every file of the pin has been stored
type PinStoreBadger struct {
	promRegistry   prometheus.Registerer
	db             *badger.DB
	logger         *slog.Logger
	metrics        *pin.Metrics
	gcTicker       *time.Ticker
	gcStopCh       chan struct{}
	dataDir        string
	gcWg           sync.WaitGroup
	blockCacheSize uint64
	indexCacheSize uint64
	gcEnabled      bool
}

func New(opts ...PinStoreBadgerOptionFunc) (*PinStoreBadger, error) {
	db := &PinStoreBadger{
		gcEnabled:      true,
		blockCacheSize: DefaultBlockCacheSize,
		indexCacheSize: DefaultIndexCacheSize,
	}
	for _, opt := range opts {
		opt(db)
	}
	db.logger = plugin.LoggerOrDiscard(db.logger)

	var badgerOpts badger.Options
	if db.dataDir == "" {
		badgerOpts = badger.DefaultOptions("").
			WithLogger(NewBadgerLogger(db.logger)).
			// The default INFO logging is a bit verbose
			WithLoggingLevel(badger.WARNING).
			WithInMemory(true)
		// Nothing to reclaim in memory
		db.gcEnabled = false
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(db.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(db.dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		badgerOpts = badger.DefaultOptions(filepath.Join(db.dataDir, "pin")).
			WithLogger(NewBadgerLogger(db.logger)).
			WithLoggingLevel(badger.WARNING).
			WithBlockCacheSize(int64(db.blockCacheSize)). //nolint:gosec // controlled and reasonable
			WithIndexCacheSize(int64(db.indexCacheSize)). //nolint:gosec // controlled and reasonable
			WithCompression(options.Snappy)
	}
	badgerDb, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	db.db = badgerDb
	db.init()
	return db, nil
}

func (d *PinStoreBadger) init() {
	d.metrics = pin.NewMetrics(d.promRegistry, "badger")
	if d.gcEnabled {
		d.gcTicker = time.NewTicker(5 * time.Minute)
		d.gcStopCh = make(chan struct{})
		d.gcWg.Add(1)
		go d.valueLogGc(d.gcTicker, d.gcStopCh)
	}
}

func (d *PinStoreBadger) valueLogGc(t *time.Ticker, stop <-chan struct{}) {
	defer d.gcWg.Done()
	for {
		select {
		case <-t.C:
			// Keep going while GC reclaims something
			for {
				err := d.db.RunValueLogGC(0.5)
				if err == nil {
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) {
					d.logger.Warn(
						fmt.Sprintf("pin DB: GC failure: %s", err),
						"component", "pin",
					)
				}
				break
			}
		case <-stop:
			return
		}
	}
}

func (d *PinStoreBadger) Start() error {
	// Database is already opened in New(), so this is a no-op
	return nil
}

func (d *PinStoreBadger) Stop() error {
	return d.Close()
}

func (d *PinStoreBadger) Close() error {
	if d.gcTicker != nil {
		d.gcTicker.Stop()
		close(d.gcStopCh)
		d.gcWg.Wait()
		d.gcTicker = nil
	}
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

func (d *PinStoreBadger) DB() *badger.DB {
	return d.db
}

func (d *PinStoreBadger) Pin(
	ctx context.Context,
	localPath string,
) (string, error) {
	hash, size, err := d.pin(ctx, localPath)
	if err != nil {
		d.metrics.PinErrors.Inc()
		d.logger.Error(
			fmt.Sprintf("failed to pin %s: %s", localPath, err),
			"component", "pin",
		)
		return "", fmt.Errorf("%w: %w", pin.ErrUpload, err)
	}
	d.metrics.Pins.Inc()
	d.metrics.PinBytes.Add(float64(size))
	d.logger.Debug(
		fmt.Sprintf("pinned %s as %s (%d bytes)", localPath, hash, size),
		"component", "pin",
	)
	return hash, nil
}

func (d *PinStoreBadger) pin(
	ctx context.Context,
	localPath string,
) (string, int64, error) {
	if d.db == nil {
		return "", 0, errors.New("pin store closed")
	}
	m, err := manifest.Build(localPath)
	if err != nil {
		return "", 0, err
	}
	pinned, err := d.isPinned(m.Hash)
	if err != nil {
		return "", 0, err
	}
	if pinned {
		return m.Hash, 0, nil
	}
	var size int64
	for _, entry := range m.Entries {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		data, err := os.ReadFile(entry.Path)
		if err != nil {
			return "", 0, err
		}
		key := []byte(contentKeyPrefix + m.Hash + "/" + entry.Name)
		if err := d.db.Update(func(txn *badger.Txn) error {
			return txn.Set(key, data)
		}); err != nil {
			return "", 0, err
		}
		size += int64(len(data))
	}
	// The marker goes last so that a partial upload never verifies
	if err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(pinnedKeyPrefix+m.Hash), []byte(localPath))
	}); err != nil {
		return "", 0, err
	}
	return m.Hash, size, nil
}

func (d *PinStoreBadger) Verify(
	ctx context.Context,
	hash string,
) (bool, error) {
	if !manifest.Valid(hash) {
		d.metrics.ObserveVerify(false, nil)
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		d.metrics.ObserveVerify(false, err)
		return false, fmt.Errorf("%w: %w", pin.ErrVerificationQuery, err)
	}
	pinned, err := d.isPinned(hash)
	d.metrics.ObserveVerify(pinned, err)
	if err != nil {
		return false, fmt.Errorf("%w: %w", pin.ErrVerificationQuery, err)
	}
	return pinned, nil
}

// Get returns the content stored under hash/name
func (d *PinStoreBadger) Get(hash string, name string) ([]byte, error) {
	var ret []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(contentKeyPrefix + hash + "/" + name))
		if err != nil {
			return err
		}
		ret, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (d *PinStoreBadger) isPinned(hash string) (bool, error) {
	if d.db == nil {
		return false, errors.New("pin store closed")
	}
	err := d.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(pinnedKeyPrefix + hash))
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (d *PinStoreBadger) Metrics() *pin.Metrics {
	return d.metrics
}
