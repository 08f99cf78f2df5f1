// Package jsonutil parses loosely typed JSON request fields.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FlexibleStringValue returns the JSON scalar in raw as a string, so "hd",
// 1080 and true are all accepted where a string field is declared. Null and
// empty input yield "". Objects and arrays are returned verbatim.
func FlexibleStringValue(raw json.RawMessage) string {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 || string(v) == "null" {
		return ""
	}

	switch v[0] {
	case '"':
		var s string
		if json.Unmarshal(v, &s) == nil {
			return s
		}
	case 't', 'f':
		var b bool
		if json.Unmarshal(v, &b) == nil {
			return strconv.FormatBool(b)
		}
	case '{', '[':
	default:
		var n json.Number
		if json.Unmarshal(v, &n) == nil {
			return formatNumber(n)
		}
	}
	return string(raw)
}

// formatNumber prints integral values without a fraction or exponent.
func formatNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// FlexibleInt parses a JSON number or numeric string as an int, for clients
// that send "15" where 15 is expected. Null or empty yields (0, false, nil).
func FlexibleInt(raw json.RawMessage) (int, bool, error) {
	s := FlexibleStringValue(raw)
	if s == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false, fmt.Errorf("expected an integer, got %s", string(raw))
	}
	return n, true, nil
}
