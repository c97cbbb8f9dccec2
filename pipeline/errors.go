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
	"errors"
	"fmt"

	"github.com/blinklabs-io/lovepoem/database/plugin/pin"
)

var (
	// ErrUpload means content could not be pinned
	ErrUpload = pin.ErrUpload
	// ErrVerificationQuery means a pin status query failed. It is treated as
	// "not verified" and never stops a run
	ErrVerificationQuery = pin.ErrVerificationQuery
	// ErrMetadataRead means a metadata document could not be read or parsed
	ErrMetadataRead = errors.New("metadata read failed")
	// ErrMetadataWrite means a rewritten metadata document could not be stored
	ErrMetadataWrite = errors.New("metadata write failed")
	// ErrTableCreation means a table could not be created
	ErrTableCreation = errors.New("table creation failed")
	// ErrInsert means a single-row insert failed
	ErrInsert = errors.New("insert failed")
	// ErrUpdate means an attribute update failed
	ErrUpdate = errors.New("update failed")
	// ErrStatement means a batch statement was rejected or could not be submitted
	ErrStatement = errors.New("statement failed")
	// ErrRead means a read-back query failed
	ErrRead = errors.New("read failed")
)

// ItemError is a failure tied to one token id
type ItemError struct {
	Kind error
	Err  error
	ID   int64
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("token %d: %s: %s", e.ID, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As
func (e *ItemError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func newItemError(kind error, id int64, err error) *ItemError {
	return &ItemError{
		Kind: kind,
		ID:   id,
		Err:  err,
	}
}

// IsFatal reports whether err must stop the run. Table lifecycle failures
// are fatal; per-item failures are not
func IsFatal(err error) bool {
	return errors.Is(err, ErrTableCreation) ||
		errors.Is(err, ErrInsert) ||
		errors.Is(err, ErrUpdate)
}
