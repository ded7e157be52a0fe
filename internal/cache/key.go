package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// MaxKeyLength is the longest key stored verbatim
const MaxKeyLength = 250

// Key builds a deterministic cache key from a namespace, an operation and its
// arguments. Scalars are stringified; slices, arrays, maps and structs are
// JSON-encoded (maps with sorted keys) and replaced by their MD5 digest.
// Keys longer than MaxKeyLength collapse to <namespace>_<md5(key)>.
func Key(namespace, operation string, args ...any) string {
	parts := make([]string, 0, len(args)+2)
	parts = append(parts, namespace, operation)
	for _, arg := range args {
		parts = append(parts, keyPart(arg))
	}

	key := strings.Join(parts, "_")
	if len(key) > MaxKeyLength {
		key = namespace + "_" + digest([]byte(key))
	}
	return key
}

func keyPart(arg any) string {
	if arg == nil {
		return "nil"
	}
	switch v := arg.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}

	switch reflect.TypeOf(arg).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct, reflect.Pointer:
		raw, err := json.Marshal(arg)
		if err != nil {
			return digest([]byte(fmt.Sprintf("%#v", arg)))
		}
		return digest(raw)
	default:
		return fmt.Sprint(arg)
	}
}

func digest(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}
