// Package placeholder substitutes {FIELD} references in label templates with record values
package placeholder

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Record is one data item; each record becomes one printed label
type Record map[string]interface{}

// Fields is a record prepared for lookups. It is built once per record.
type Fields struct {
	exact  map[string]string
	folded map[string]string
}

// NewFields stringifies every value of rec and indexes the keys both as
// given and lower-cased. When two keys fold to the same name the
// lexicographically smaller original key wins.
func NewFields(rec Record) *Fields {
	f := &Fields{
		exact:  make(map[string]string, len(rec)),
		folded: make(map[string]string, len(rec)),
	}

	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := Stringify(rec[k])
		f.exact[k] = v

		lower := strings.ToLower(k)
		if _, exists := f.folded[lower]; !exists {
			f.folded[lower] = v
		}
	}

	return f
}

// Lookup returns the value for name, trying an exact key match first and a
// case-insensitive match second.
func (f *Fields) Lookup(name string) (string, bool) {
	if f == nil {
		return "", false
	}
	if v, ok := f.exact[name]; ok {
		return v, true
	}
	v, ok := f.folded[strings.ToLower(name)]
	return v, ok
}

// Len returns the number of fields in the record
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.exact)
}

// Stringify renders a record value without locale formatting
func Stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
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
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format("2006-01-02")
		}
		return v.Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
