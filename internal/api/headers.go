package api

import (
	"fmt"
	"net/http"
	"strings"
)

// HeaderPair is one entry of a key/value header list.
type HeaderPair struct {
	Key   string
	Value string
}

// NormalizeHeaders converts any accepted header shape to one mapping:
//
//	map[string]string  map-like object
//	[]HeaderPair       key/value pair list (entries with an empty key are skipped)
//	[][2]string        key/value pair list
//	http.Header        header collection (multiple values joined with ", ")
//
// nil yields an empty mapping; any other type is an error.
func NormalizeHeaders(h any) (map[string]string, error) {
	out := map[string]string{}
	switch v := h.(type) {
	case nil:
	case map[string]string:
		for k, val := range v {
			out[k] = val
		}
	case []HeaderPair:
		for _, p := range v {
			if p.Key == "" {
				continue
			}
			out[p.Key] = p.Value
		}
	case [][2]string:
		for _, p := range v {
			if p[0] == "" {
				continue
			}
			out[p[0]] = p[1]
		}
	case http.Header:
		for k, vals := range v {
			out[k] = strings.Join(vals, ", ")
		}
	default:
		return nil, fmt.Errorf("unsupported header shape %T", h)
	}
	return out, nil
}
