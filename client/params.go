package client

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Params is a set of query parameters. Keys are unique and are always
// serialised in sorted order, so encoding the same set twice yields the
// same string.
type Params map[string]string

// Set maps key to the string form of value and returns p for chaining.
// Booleans become "1" or "0", numbers their decimal form, and anything
// else its fmt representation.
func (p Params) Set(key string, value any) Params {
	p[key] = paramValue(value)
	return p
}

// Encode serialises p as key1=value1&key2=value2 in key order, escaping
// values with [url.QueryEscape]. Keys are escaped the same way, unlike
// encoders that pass keys through verbatim, so a key containing '&' or '='
// cannot split the pair. An empty set encodes to "".
func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}

	var b strings.Builder
	for i, k := range slices.Sorted(maps.Keys(p)) {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[k]))
	}

	return b.String()
}

// Join is shorthand for Join(baseURL, p).
func (p Params) Join(baseURL string) string {
	return Join(baseURL, p)
}

// Join appends the encoded params to baseURL. A '?' separator is added
// unless baseURL already ends with one. The separator is added even when
// params is empty.
func Join(baseURL string, params Params) string {
	if strings.HasSuffix(baseURL, "?") {
		return baseURL + params.Encode()
	}

	return baseURL + "?" + params.Encode()
}

func paramValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
