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

package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/blinklabs-io/lovepoem/database/plugin/pin"
	"github.com/blinklabs-io/lovepoem/pipeline"
	"github.com/blinklabs-io/lovepoem/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGateway = "https://gateway.example.com"

func newNormalizer(dirs testDirs, store pin.PinStore) *pipeline.Normalizer {
	return pipeline.NewNormalizer(
		store,
		pipeline.WithMetadataDir(dirs.metadata),
		pipeline.WithImagesDir(dirs.images),
		pipeline.WithGateway(testGateway),
	)
}

func TestNormalizeUploadsAndRewrites(t *testing.T) {
	dirs := newTestDirs(t)
	dirs.writeDoc(t, 0, poemDoc(0, "", "LOCKED"))
	dirs.writeImage(t, 0, "image-zero")
	store := newPinStore(t)
	ctx := context.Background()

	rec, err := newNormalizer(dirs, store).Normalize(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.ID)

	hash, ok := token.ContentHash(rec.Image)
	require.True(t, ok, "image is not a durable URL: %s", rec.Image)
	assert.Equal(t, token.ImageURL(testGateway, hash, 0), rec.Image)
	pinned, err := store.Verify(ctx, hash)
	require.NoError(t, err)
	assert.True(t, pinned)

	stored, err := token.Read(dirs.metadata, 0)
	require.NoError(t, err)
	assert.Equal(t, rec.Image, stored.Image)
	assert.Equal(t, "Poem 0", stored.Name)
	require.Len(t, stored.Attributes, 1)
	assert.Equal(t, "LOCKED", stored.Attributes[0].Value.String())
}

func TestNormalizeIsIdempotent(t *testing.T) {
	dirs := newTestDirs(t)
	ids := []int64{0, 1, 2}
	for _, id := range ids {
		dirs.writeDoc(t, id, poemDoc(id, "", "LOCKED"))
		dirs.writeImage(t, id, fmt.Sprintf("image-%d", id))
	}
	store := newFakePinStore()
	n := newNormalizer(dirs, store)
	ctx := context.Background()

	first, err := n.NormalizeAll(ctx, ids)
	require.NoError(t, err)
	require.Len(t, first.Records, 3)
	assert.Equal(t, 3, store.pinCount())
	snapshot := make(map[int64][]byte)
	for _, id := range ids {
		snapshot[id] = dirs.readDoc(t, id)
	}

	second, err := n.NormalizeAll(ctx, ids)
	require.NoError(t, err)
	require.Len(t, second.Records, 3)
	assert.Equal(t, 3, store.pinCount(), "second run pinned again")
	for _, id := range ids {
		assert.Equal(t, snapshot[id], dirs.readDoc(t, id), "document %d changed", id)
	}
	for i := range first.Records {
		assert.Equal(t, first.Records[i].Image, second.Records[i].Image)
	}
}

func TestNormalizeIsIdempotentWithGatewayPath(t *testing.T) {
	dirs := newTestDirs(t)
	dirs.writeDoc(t, 0, poemDoc(0, "", "LOCKED"))
	dirs.writeImage(t, 0, "image-0")
	store := newFakePinStore()
	n := pipeline.NewNormalizer(
		store,
		pipeline.WithMetadataDir(dirs.metadata),
		pipeline.WithImagesDir(dirs.images),
		pipeline.WithGateway("https://example.com/gw"),
	)
	ctx := context.Background()

	rec, err := n.Normalize(ctx, 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rec.Image, "https://example.com/gw/ipfs/Qm"), rec.Image)
	snapshot := dirs.readDoc(t, 0)
	for range 2 {
		_, err := n.Normalize(ctx, 0)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, store.pinCount())
	assert.Equal(t, snapshot, dirs.readDoc(t, 0))
}

func TestNormalizeRepinsUnverifiedImage(t *testing.T) {
	dirs := newTestDirs(t)
	stale := token.ImageURL(testGateway, "QmStale", 4)
	dirs.writeDoc(t, 4, poemDoc(4, stale, "LOCKED"))
	dirs.writeImage(t, 4, "image-four")
	store := newFakePinStore()

	rec, err := newNormalizer(dirs, store).Normalize(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 1, store.pinCount())
	assert.NotEqual(t, stale, rec.Image)
}

func TestNormalizeVerifyQueryFailureUploads(t *testing.T) {
	dirs := newTestDirs(t)
	dirs.writeDoc(t, 3, poemDoc(3, token.ImageURL(testGateway, "QmKnown", 3), "LOCKED"))
	dirs.writeImage(t, 3, "image-three")
	store := newFakePinStore()
	store.pinned["QmKnown"] = true
	store.verifyErr = fmt.Errorf("%w: service unavailable", pin.ErrVerificationQuery)

	_, err := newNormalizer(dirs, store).Normalize(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, store.pinCount())
}

func TestNormalizeUploadFailureLeavesDocument(t *testing.T) {
	dirs := newTestDirs(t)
	dirs.writeDoc(t, 7, poemDoc(7, "", "LOCKED"))
	dirs.writeImage(t, 7, "image-seven")
	before := dirs.readDoc(t, 7)
	store := newFakePinStore()
	store.failNames["7.jpeg"] = true

	rec, err := newNormalizer(dirs, store).Normalize(context.Background(), 7)
	require.Error(t, err)
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, pipeline.ErrUpload)
	var itemErr *pipeline.ItemError
	require.True(t, errors.As(err, &itemErr))
	assert.Equal(t, int64(7), itemErr.ID)
	assert.False(t, pipeline.IsFatal(err))
	assert.Equal(t, before, dirs.readDoc(t, 7))
}

func TestNormalizeReadFailure(t *testing.T) {
	dirs := newTestDirs(t)
	dirs.writeDoc(t, 5, `{"name": "broken"`)
	store := newFakePinStore()
	n := newNormalizer(dirs, store)

	_, err := n.Normalize(context.Background(), 5)
	assert.ErrorIs(t, err, pipeline.ErrMetadataRead)
	_, err = n.Normalize(context.Background(), 6)
	assert.ErrorIs(t, err, pipeline.ErrMetadataRead)
	assert.Equal(t, 0, store.pinCount())
}

func TestNormalizeAllIsolatesFailures(t *testing.T) {
	dirs := newTestDirs(t)
	for _, id := range []int64{0, 1, 2} {
		dirs.writeDoc(t, id, poemDoc(id, "", "LOCKED"))
	}
	// Image 1 is missing
	dirs.writeImage(t, 0, "image-zero")
	dirs.writeImage(t, 2, "image-two")
	store := newPinStore(t)

	res, err := newNormalizer(dirs, store).NormalizeAll(
		context.Background(),
		[]int64{0, 1, 2},
	)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, int64(0), res.Records[0].ID)
	assert.Equal(t, int64(2), res.Records[1].ID)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, int64(1), res.Failed[0].ID)
	assert.ErrorIs(t, res.Failed[0], pipeline.ErrUpload)
}

func TestNormalizeAllCancelled(t *testing.T) {
	dirs := newTestDirs(t)
	dirs.writeDoc(t, 0, poemDoc(0, "", "LOCKED"))
	dirs.writeImage(t, 0, "image-zero")
	store := newFakePinStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newNormalizer(dirs, store).NormalizeAll(ctx, []int64{0})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Records)
	assert.Equal(t, 0, store.pinCount())
}
