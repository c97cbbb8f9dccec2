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
	"bytes"
	"errors"
	"fmt"
	"maps"
	"strconv"

	"github.com/goccy/go-json"
)

// Attribute is a single trait of a token
type Attribute struct {
	TraitType string         `json:"trait_type"`
	Value     AttributeValue `json:"value"`
}

// AttributeValue is the text of an attribute value. Metadata authored by hand
// sometimes uses bare numbers or booleans, which are accepted as their JSON text
type AttributeValue string

func (v *AttributeValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = AttributeValue(s)
		return nil
	}
	switch data[0] {
	case '{', '[':
		return fmt.Errorf("unsupported attribute value: %s", data)
	}
	*v = AttributeValue(data)
	return nil
}

func (v AttributeValue) String() string {
	return string(v)
}

// Record is the metadata of one token. ID comes from the file name and is
// never part of the document
type Record struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
	ID          int64       `json:"-"`
	// doc holds every top-level key of the document the record was read from
	doc map[string]json.RawMessage
}

// recordFields mirrors Record without its methods
type recordFields struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

var errNotObject = errors.New("metadata is not a JSON object")

func (r *Record) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc == nil {
		return errNotObject
	}
	var fields recordFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	r.Name = fields.Name
	r.Description = fields.Description
	r.Image = fields.Image
	r.Attributes = fields.Attributes
	r.doc = doc
	return nil
}

// MarshalJSON writes the record. For a record read from a document only the
// image is replaced and every other key is kept as it was authored
func (r Record) MarshalJSON() ([]byte, error) {
	if r.doc == nil {
		return json.Marshal(recordFields{
			Name:        r.Name,
			Description: r.Description,
			Image:       r.Image,
			Attributes:  r.Attributes,
		})
	}
	doc := maps.Clone(r.doc)
	image, err := json.Marshal(r.Image)
	if err != nil {
		return nil, err
	}
	doc["image"] = image
	return json.Marshal(doc)
}

// IDString returns the id as used in file names
func (r *Record) IDString() string {
	return strconv.FormatInt(r.ID, 10)
}
