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

import "time"

// Table is a row of the registry. Its ID is the table id assigned to a
// CREATE TABLE statement
type Table struct {
	CreatedAt time.Time
	Name      string `gorm:"size:255;uniqueIndex"`
	Prefix    string `gorm:"size:255"`
	Schema    string `gorm:"type:text"`
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	ChainID   int64
	Block     int64
}

func (Table) TableName() string {
	return "lovepoem_registry"
}

// Receipt is a finalized write as stored by the registry
type Receipt struct {
	CreatedAt       time.Time
	TransactionHash string `gorm:"size:66;primaryKey"`
	TableIDs        string `gorm:"size:255"`
	Names           string `gorm:"type:text"`
	Statement       string `gorm:"type:text"`
	Error           string `gorm:"type:text"`
	BlockNumber     int64  `gorm:"index"`
	ChainID         int64
}

func (Receipt) TableName() string {
	return "lovepoem_receipts"
}

// MigrateModels contains the registry's own tables
var MigrateModels = []any{
	&Table{},
	&Receipt{},
}
