package metrics

import (
	"sort"
	"strconv"
)

// StatusCount is the number of responses seen with one status code.
type StatusCount struct {
	Code  int    `json:"code"`
	Class string `json:"class"`
	Count int64  `json:"count"`
}

// FlattenStatusCodes converts a code->count map into rows sorted by
// descending count, then by code for stability.
func FlattenStatusCodes(codes map[int]int64) []StatusCount {
	if len(codes) == 0 {
		return nil
	}
	rows := make([]StatusCount, 0, len(codes))
	for code, count := range codes {
		rows = append(rows, StatusCount{Code: code, Class: StatusClass(code), Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Code < rows[j].Code
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}

// StatusClass returns "2xx", "4xx" and so on; unknown codes map to their
// own decimal form.
func StatusClass(code int) string {
	if code >= 100 && code < 600 {
		return strconv.Itoa(code/100) + "xx"
	}
	return strconv.Itoa(code)
}
