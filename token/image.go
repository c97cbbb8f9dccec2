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

package token

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// DefaultGateway serves pinned content over HTTP
const DefaultGateway = "https://gateway.pinata.cloud"

var (
	// {gateway}/ipfs/{hash}/{name}, where the gateway may carry a path of its own
	pathGatewayRegexp = regexp.MustCompile(`(?:^|/)ipfs/([A-Za-z0-9]+)(?:/|$)`)
	// https://{hash}.ipfs.w3s.link/
	subdomainGatewayRegexp = regexp.MustCompile(
		`^https://([A-Za-z0-9]+)\.ipfs\.w3s\.link(?:/|$)`,
	)
)

// ImageURL returns the durable URL of the image for id inside the pinned content hash
func ImageURL(gateway string, hash string, id int64) string {
	return strings.TrimRight(gateway, "/") + "/ipfs/" + hash + "/" +
		strconv.FormatInt(id, 10) + ImageExt
}

// ContentHash extracts the content hash from a durable image URL. It reports
// false for anything else, including local paths and placeholders
func ContentHash(imageURL string) (string, bool) {
	if m := subdomainGatewayRegexp.FindStringSubmatch(imageURL); m != nil {
		return m[1], true
	}
	if strings.HasPrefix(imageURL, "ipfs://") {
		hash, _, _ := strings.Cut(strings.TrimPrefix(imageURL, "ipfs://"), "/")
		return hash, hash != ""
	}
	u, err := url.Parse(imageURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return "", false
	}
	if m := pathGatewayRegexp.FindStringSubmatch(u.EscapedPath()); m != nil {
		return m[1], true
	}
	return "", false
}
