package api

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"time"
)

// Params are query parameters. Values may be scalars, slices or nested maps;
// see encodeQuery for the encoding rules.
type Params map[string]any

// merge returns a new Params with every entry of over applied on top of base.
func merge(base, over Params) Params {
	out := make(Params, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// encodeQuery flattens params into url.Values:
//
//	nil and "" are dropped
//	slices become key[]=a&key[]=b
//	maps become key[sub]=v, recursively
//	scalars become key=v, overwriting any earlier value for key
func encodeQuery(params Params) url.Values {
	values := url.Values{}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		appendValue(values, k, params[k])
	}
	return values
}

func appendValue(values url.Values, key string, v any) {
	if isEmpty(v) {
		return
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if _, ok := v.([]byte); ok {
			values.Set(key, string(v.([]byte)))
			return
		}
		for i := 0; i < rv.Len(); i++ {
			elem := rv.Index(i).Interface()
			if isNil(elem) {
				continue
			}
			values.Add(key+"[]", stringify(deref(elem)))
		}
	case reflect.Map:
		mkeys := rv.MapKeys()
		sort.Slice(mkeys, func(i, j int) bool {
			return fmt.Sprint(mkeys[i].Interface()) < fmt.Sprint(mkeys[j].Interface())
		})
		for _, mk := range mkeys {
			sub := fmt.Sprint(mk.Interface())
			appendValue(values, key+"["+sub+"]", rv.MapIndex(mk).Interface())
		}
	default:
		values.Set(key, stringify(rv.Interface()))
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func isEmpty(v any) bool {
	if isNil(v) {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		return isEmpty(rv.Elem().Interface())
	}
	return false
}

func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	return rv.Interface()
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case time.Time:
		return t.Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
