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
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/blinklabs-io/lovepoem/database/plugin/pin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBucket answers the subset of the S3 API used by the pin store
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]bool
}

func (f *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		_, _ = io.Copy(io.Discard, r.Body)
		f.objects[key] = true
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if !f.objects[key] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeBucket) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key]
}

func newTestStore(t *testing.T) (*PinStoreS3, *fakeBucket, *prometheus.Registry) {
	t.Helper()
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "credentials"))
	bucket := &fakeBucket{objects: make(map[string]bool)}
	server := httptest.NewServer(bucket)
	t.Cleanup(server.Close)
	reg := prometheus.NewRegistry()
	p, err := NewWithOptions(
		WithEndpoint(server.URL),
		WithBucket("lovepoem"),
		WithPrefix("pins"),
		WithPromRegistry(reg),
	)
	require.NoError(t, err)
	require.NoError(t, p.Start())
	t.Cleanup(func() { _ = p.Stop() })
	return p, bucket, reg
}

func TestPinAndVerify(t *testing.T) {
	p, bucket, _ := newTestStore(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "1.jpeg")
	require.NoError(t, os.WriteFile(file, []byte("jpeg bytes"), 0o600))

	hash, err := p.Pin(context.Background(), file)
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.True(t, bucket.has("lovepoem/pins/"+hash+"/1.jpeg"))
	assert.True(t, bucket.has("lovepoem/pins/"+hash+"/.pinned"))

	ok, err := p.Verify(context.Background(), hash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 1, testutil.ToFloat64(p.metrics.Pins), 0)
}

func TestVerifyMissing(t *testing.T) {
	p, _, _ := newTestStore(t)
	ok, err := p.Verify(
		context.Background(),
		"QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
	)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.InDelta(
		t,
		1,
		testutil.ToFloat64(p.metrics.Verifications.WithLabelValues("missing")),
		0,
	)
}

func TestPinNotStarted(t *testing.T) {
	p, err := NewWithOptions(WithBucket("lovepoem"))
	require.NoError(t, err)
	_, err = p.Pin(context.Background(), t.TempDir())
	require.ErrorIs(t, err, pin.ErrUpload)
}

func TestStartRequiresBucket(t *testing.T) {
	p, err := NewWithOptions()
	require.NoError(t, err)
	require.Error(t, p.Start())
}

func TestIsS3NotFound(t *testing.T) {
	assert.True(t, isS3NotFound(&s3types.NoSuchKey{}))
	assert.True(t, isS3NotFound(&s3types.NotFound{}))
	assert.True(
		t,
		isS3NotFound(&smithy.GenericAPIError{Code: "NotFound"}),
	)
	assert.False(
		t,
		isS3NotFound(&smithy.GenericAPIError{Code: "AccessDenied"}),
	)
	assert.False(t, isS3NotFound(errors.New("boom")))
}

func TestWithPrefix(t *testing.T) {
	p := &PinStoreS3{}
	WithPrefix("/a/b/")(p)
	assert.Equal(t, "a/b/", p.prefix)
	assert.Equal(t, "a/b/Qm/1.jpeg", p.fullKey("Qm", "1.jpeg"))
}
