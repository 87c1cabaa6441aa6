package utils

import (
	"reflect"
)

var ColumnTag = "db"

// StructTagValues returns the column names tagged on input's exported fields.
// Anonymous embedded structs without a tag of their own are flattened, the
// same way scany maps them when scanning rows.
func StructTagValues(input any) []string {
	targetValue := structValue(input)

	result := make([]string, 0, targetValue.NumField())
	walkColumns(targetValue, func(column string, _ reflect.Value) {
		result = append(result, column)
	})

	return result
}

// StructToMap maps column names to field values, suitable for squirrel's
// SetMap on inserts.
func StructToMap(input any) map[string]any {
	result := make(map[string]any)

	walkColumns(structValue(input), func(column string, value reflect.Value) {
		result[column] = value.Interface()
	})

	return result
}

// ColumnsExcept returns columns without any of the named ones.
func ColumnsExcept(columns []string, skip ...string) []string {
	out := make([]string, 0, len(columns))

columnloop:
	for _, c := range columns {
		for _, s := range skip {
			if c == s {
				continue columnloop
			}
		}
		out = append(out, c)
	}

	return out
}

func structValue(input any) reflect.Value {
	v := reflect.ValueOf(input)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		panic("input must be a pointer to a struct or a struct")
	}

	return v
}

func walkColumns(v reflect.Value, fn func(column string, value reflect.Value)) {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}

		tagValue := field.Tag.Get(ColumnTag)
		if tagValue == "-" {
			continue
		}

		if tagValue == "" {
			if field.Anonymous && field.Type.Kind() == reflect.Struct {
				walkColumns(v.Field(i), fn)
			}
			continue
		}

		fn(tagValue, v.Field(i))
	}
}
