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

package registry

import (
	"context"
	"errors"

	"github.com/blinklabs-io/lovepoem/database/plugin/table"
)

var ErrNotStarted = errors.New("table store not started")

// Store implements table.TableStore for driver plugins by forwarding to the
// engine attached when the plugin starts
type Store struct {
	engine *Engine
}

// Attach sets the engine used by the store
func (s *Store) Attach(e *Engine) {
	s.engine = e
}

// Engine returns the attached engine, or nil before Start
func (s *Store) Engine() *Engine {
	return s.engine
}

func (s *Store) Submit(
	ctx context.Context,
	stmt table.Statement,
) (table.Txn, error) {
	if s.engine == nil {
		return nil, ErrNotStarted
	}
	return s.engine.Submit(ctx, stmt)
}

func (s *Store) Query(
	ctx context.Context,
	stmt table.Statement,
	dest any,
) error {
	if s.engine == nil {
		return ErrNotStarted
	}
	return s.engine.Query(ctx, stmt, dest)
}

func (s *Store) ChainID() int64 {
	if s.engine == nil {
		return 0
	}
	return s.engine.ChainID()
}

// DetachEngine stops the engine writer and forgets it
func (s *Store) DetachEngine() error {
	if s.engine == nil {
		return nil
	}
	err := s.engine.Close()
	s.engine = nil
	return err
}
