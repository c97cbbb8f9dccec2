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

package table

import (
	"fmt"
	"strconv"
	"strings"
)

// Statement is SQL text with '?' placeholders and the values bound to them
type Statement struct {
	SQL  string
	Args []any
}

// Literal renders the statement with every placeholder replaced by a SQL
// literal. Strings are single-quoted with embedded quotes doubled. The result
// is meant for logs and dry runs; it is never sent to a store
func (s Statement) Literal() string {
	if len(s.Args) == 0 {
		return s.SQL
	}
	var sb strings.Builder
	argIdx := 0
	inQuote := false
	for _, r := range s.SQL {
		switch {
		case r == '\'':
			inQuote = !inQuote
			sb.WriteRune(r)
		case r == '?' && !inQuote && argIdx < len(s.Args):
			sb.WriteString(literal(s.Args[argIdx]))
			argIdx++
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func (s Statement) String() string {
	return s.Literal()
}

func literal(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case []byte:
		return "'" + strings.ReplaceAll(string(val), "'", "''") + "'"
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case fmt.Stringer:
		return literal(val.String())
	default:
		return literal(fmt.Sprint(val))
	}
}
