package binder

import (
	"fmt"
	"net/http"
	"reflect"
)

// Path binds route parameters to fields tagged `path:"name"`, reading them
// through extractor. With chi that is chi.URLParam.
func Path(extractor func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return fmt.Errorf("%w: extractor function is nil", ErrFailedToParsePath)
		}

		rv, err := structValue(v, ErrFailedToParsePath)
		if err != nil {
			return err
		}
		rt := rv.Type()

		for i := range rv.NumField() {
			field := rv.Field(i)
			fieldType := rt.Field(i)
			if !field.CanSet() {
				continue
			}
			name, ok := explicitTag(fieldType, "path")
			if !ok {
				continue
			}
			value := extractor(r, name)
			if value == "" {
				continue
			}
			if err := setFieldValue(field, fieldType.Type, []string{value}); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrFailedToParsePath, name, err)
			}
		}
		return nil
	}
}

// explicitTag returns the tagged name. Path parameters have no implicit
// names, so untagged fields are skipped.
func explicitTag(field reflect.StructField, tagName string) (string, bool) {
	name, skip := parseFieldTag(field, tagName)
	if skip || field.Tag.Get(tagName) == "" {
		return "", false
	}
	return name, true
}
