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

package pinata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/lovepoem/database/plugin"
	"github.com/blinklabs-io/lovepoem/database/plugin/pin"
	"github.com/blinklabs-io/lovepoem/database/plugin/pin/internal/manifest"
	"github.com/goccy/go-json"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

const (
	DefaultApiUrl            = "https://api.pinata.cloud"
	DefaultRequestsPerSecond = 3
	DefaultRetryMax          = 3

	pinFilePath = "/pinning/pinFileToIPFS"
	pinListPath = "/data/pinList"

	// Large directories take a while to upload
	requestTimeout = 10 * time.Minute
)

// pinResponse is returned by pinFileToIPFS
type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	Timestamp string `json:"Timestamp"`
	PinSize   int64  `json:"PinSize"`
}

// pinListResponse is returned by pinList
type pinListResponse struct {
	Rows []struct {
		IpfsPinHash string `json:"ipfs_pin_hash"`
	} `json:"rows"`
	Count int `json:"count"`
}

type apiError struct {
	Error any `json:"error"`
}

// PinStorePinata pins content through the Pinata pinning API. Content hashes
// are CIDv0 values assigned by the service
type PinStorePinata struct {
	promRegistry      prometheus.Registerer
	logger            *slog.Logger
	metrics           *pin.Metrics
	client            *retryablehttp.Client
	rateLimit         *rate.Limiter
	jwt               string
	apiUrl            string
	requestsPerSecond int
	retryMax          int
}

func NewWithOptions(
	opts ...PinStorePinataOptionFunc,
) (*PinStorePinata, error) {
	p := &PinStorePinata{
		apiUrl:            DefaultApiUrl,
		requestsPerSecond: DefaultRequestsPerSecond,
		retryMax:          DefaultRetryMax,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = plugin.LoggerOrDiscard(p.logger)
	if _, err := url.Parse(p.apiUrl); err != nil {
		return nil, fmt.Errorf("pinata: invalid API URL: %w", err)
	}
	p.metrics = pin.NewMetrics(p.promRegistry, "pinata")
	p.client = retryablehttp.NewClient()
	p.client.RetryMax = p.retryMax
	p.client.RetryWaitMin = 500 * time.Millisecond
	p.client.RetryWaitMax = 5 * time.Second
	p.client.HTTPClient.Timeout = requestTimeout
	p.client.Logger = p.logger.With("component", "pin")
	// Hand the final response back so the API error body can be reported
	p.client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if p.requestsPerSecond > 0 {
		p.rateLimit = rate.NewLimiter(
			rate.Every(time.Second/time.Duration(p.requestsPerSecond)),
			p.requestsPerSecond,
		)
	}
	return p, nil
}

// Start implements the plugin.Plugin interface.
func (p *PinStorePinata) Start() error {
	if p.jwt == "" {
		return errors.New("pinata: JWT not set")
	}
	return nil
}

// Stop implements the plugin.Plugin interface.
func (p *PinStorePinata) Stop() error {
	return p.Close()
}

func (p *PinStorePinata) Close() error {
	p.client.HTTPClient.CloseIdleConnections()
	return nil
}

func (p *PinStorePinata) Pin(
	ctx context.Context,
	localPath string,
) (string, error) {
	hash, size, err := p.pin(ctx, localPath)
	if err != nil {
		p.metrics.PinErrors.Inc()
		p.logger.Error(
			fmt.Sprintf("pinata: failed to pin %s: %s", localPath, err),
			"component", "pin",
		)
		return "", fmt.Errorf("%w: %w", pin.ErrUpload, err)
	}
	p.metrics.Pins.Inc()
	p.metrics.PinBytes.Add(float64(size))
	p.logger.Debug(
		fmt.Sprintf("pinata: pinned %s as %s (%d bytes)", localPath, hash, size),
		"component", "pin",
	)
	return hash, nil
}

func (p *PinStorePinata) pin(
	ctx context.Context,
	localPath string,
) (string, int64, error) {
	body, contentType, err := p.pinRequestBody(localPath)
	if err != nil {
		return "", 0, err
	}
	req, err := retryablehttp.NewRequestWithContext(
		ctx,
		http.MethodPost,
		p.apiUrl+pinFilePath,
		body,
	)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", contentType)
	var resp pinResponse
	if err := p.do(ctx, req, &resp); err != nil {
		return "", 0, err
	}
	if resp.IpfsHash == "" {
		return "", 0, errors.New("response did not include a content hash")
	}
	return resp.IpfsHash, resp.PinSize, nil
}

// pinRequestBody builds the multipart upload. A directory is sent as one file
// part per entry, each named <dir>/<relative path>
func (p *PinStorePinata) pinRequestBody(
	localPath string,
) ([]byte, string, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return nil, "", err
	}
	m, err := manifest.Build(localPath)
	if err != nil {
		return nil, "", err
	}
	name := filepath.Base(localPath)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, entry := range m.Entries {
		fileName := entry.Name
		if info.IsDir() {
			fileName = name + "/" + entry.Name
		}
		part, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			return nil, "", err
		}
		f, err := os.Open(entry.Path)
		if err != nil {
			return nil, "", err
		}
		_, err = io.Copy(part, f)
		f.Close()
		if err != nil {
			return nil, "", err
		}
	}
	meta, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("pinataMetadata", string(meta)); err != nil {
		return nil, "", err
	}
	opts, err := json.Marshal(map[string]any{
		"cidVersion":        0,
		"wrapWithDirectory": true,
	})
	if err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("pinataOptions", string(opts)); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

func (p *PinStorePinata) Verify(
	ctx context.Context,
	hash string,
) (bool, error) {
	if hash == "" {
		p.metrics.ObserveVerify(false, nil)
		return false, nil
	}
	query := url.Values{}
	query.Set("status", "pinned")
	query.Set("hashContains", hash)
	req, err := retryablehttp.NewRequestWithContext(
		ctx,
		http.MethodGet,
		p.apiUrl+pinListPath+"?"+query.Encode(),
		nil,
	)
	if err != nil {
		p.metrics.ObserveVerify(false, err)
		return false, fmt.Errorf("%w: %w", pin.ErrVerificationQuery, err)
	}
	var resp pinListResponse
	err = p.do(ctx, req, &resp)
	pinned := err == nil && len(resp.Rows) > 0
	p.metrics.ObserveVerify(pinned, err)
	if err != nil {
		p.logger.Warn(
			fmt.Sprintf("pinata: status query for %s failed: %s", hash, err),
			"component", "pin",
		)
		return false, fmt.Errorf("%w: %w", pin.ErrVerificationQuery, err)
	}
	return pinned, nil
}

func (p *PinStorePinata) do(
	ctx context.Context,
	req *retryablehttp.Request,
	output any,
) error {
	req.Header.Set("Authorization", "Bearer "+p.jwt)
	req.Header.Set("Accept", "application/json")
	if p.rateLimit != nil {
		if err := p.rateLimit.Wait(ctx); err != nil {
			return err
		}
	}
	response, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	decoder := json.NewDecoder(response.Body)
	if response.StatusCode < 200 || response.StatusCode > 299 {
		var apiErr apiError
		if err := decoder.Decode(&apiErr); err != nil || apiErr.Error == nil {
			return fmt.Errorf("invalid status code: %d", response.StatusCode)
		}
		return fmt.Errorf(
			"invalid status code (%v): %d",
			apiErr.Error,
			response.StatusCode,
		)
	}
	return decoder.Decode(output)
}
