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

	"github.com/blinklabs-io/lovepoem/database/plugin/table"
	"github.com/blinklabs-io/lovepoem/token"
)

const (
	mainInsertSQL      = "INSERT INTO %s (id, name, description, image) VALUES (?, ?, ?, ?);"
	attributeInsertSQL = "INSERT INTO %s (main_id, trait_type, value) VALUES (?, ?, ?);"
)

var errNilRecord = errors.New("nil record")

// StatementPair holds the writes for one record: the main row and one row per attribute
type StatementPair struct {
	ID         int64
	Main       table.Statement
	Attributes []table.Statement
}

// Compile turns records into insert statements against mainTable and
// attributesTable. Pairs and attribute statements keep the input order
func Compile(
	records []*token.Record,
	mainTable string,
	attributesTable string,
) ([]StatementPair, error) {
	if err := table.CheckIdentifier(mainTable); err != nil {
		return nil, err
	}
	if err := table.CheckIdentifier(attributesTable); err != nil {
		return nil, err
	}
	mainSQL := fmt.Sprintf(mainInsertSQL, mainTable)
	attrSQL := fmt.Sprintf(attributeInsertSQL, attributesTable)
	ret := make([]StatementPair, 0, len(records))
	for idx, rec := range records {
		if rec == nil {
			return nil, fmt.Errorf("record %d: %w", idx, errNilRecord)
		}
		pair := StatementPair{
			ID: rec.ID,
			Main: table.Statement{
				SQL:  mainSQL,
				Args: []any{rec.ID, rec.Name, rec.Description, rec.Image},
			},
			Attributes: make([]table.Statement, 0, len(rec.Attributes)),
		}
		for _, attr := range rec.Attributes {
			pair.Attributes = append(
				pair.Attributes,
				table.Statement{
					SQL:  attrSQL,
					Args: []any{rec.ID, attr.TraitType, attr.Value.String()},
				},
			)
		}
		ret = append(ret, pair)
	}
	return ret, nil
}
