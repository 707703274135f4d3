package store

import "reflect"

// mergeDraft returns current with every exported field of draft that differs
// from base copied over it. Embedded structs are merged field by field, so a
// draft without an ID keeps the entity's identity and timestamps.
func mergeDraft[T any](current, draft, base T) T {
	out := reflect.ValueOf(&current).Elem()
	if out.Kind() != reflect.Struct {
		return draft
	}
	mergeStruct(out, reflect.ValueOf(draft), reflect.ValueOf(base))
	return current
}

func mergeStruct(out, draft, base reflect.Value) {
	t := out.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		d, b := draft.Field(i), base.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			mergeStruct(out.Field(i), d, b)
			continue
		}
		if !reflect.DeepEqual(d.Interface(), b.Interface()) {
			out.Field(i).Set(d)
		}
	}
}
