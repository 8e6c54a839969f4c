package runner

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
)

// ExpandTemplates expands ${VAR} references in place in the struct pointed to
// by in. Fields of kind string, *string, []string and map[string]string are
// expanded only when tagged `template` (`template:"-"` opts out). Map keys are
// left as is. Nested structs and non-nil
// struct pointers are always visited. Every failing field is reported, keyed
// by its yaml path.
func ExpandTemplates[T any](in *T, variables map[string]string) error {
	if in == nil {
		return nil
	}
	v := reflect.ValueOf(in).Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("ExpandTemplates expects a pointer to a struct; got *%s", v.Type())
	}

	e := &expander{variables: variables}
	e.visitStruct(v, "")
	return e.errs
}

type expander struct {
	variables map[string]string
	errs      error
}

func (e *expander) visitStruct(v reflect.Value, path string) {
	typ := v.Type()
	for i := range typ.NumField() {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, tagged := sf.Tag.Lookup("template")
		e.visitField(v.Field(i), fieldPath(path, sf), tagged && tag != "-")
	}
}

func (e *expander) visitField(field reflect.Value, path string, expand bool) {
	switch field.Kind() {
	case reflect.String:
		if expand {
			e.expandString(field, path)
		}

	case reflect.Pointer:
		if field.IsNil() {
			return
		}
		elem := field.Elem()
		switch elem.Kind() {
		case reflect.String:
			if !expand {
				return
			}
			// The pointee may be shared with the caller; expand a copy.
			expanded := reflect.New(elem.Type())
			expanded.Elem().SetString(elem.String())
			e.expandString(expanded.Elem(), path)
			field.Set(expanded)
		case reflect.Struct:
			e.visitStruct(elem, path)
		}

	case reflect.Struct:
		e.visitStruct(field, path)

	case reflect.Slice:
		if !expand || field.Type().Elem().Kind() != reflect.String {
			return
		}
		for i := range field.Len() {
			e.expandString(field.Index(i), fmt.Sprintf("%s[%d]", path, i))
		}

	case reflect.Map:
		if !expand || field.IsNil() || field.Type().Key().Kind() != reflect.String || field.Type().Elem().Kind() != reflect.String {
			return
		}
		// Map values are not addressable and the map may be shared; rebuild it.
		expanded := reflect.MakeMapWithSize(field.Type(), field.Len())
		iter := field.MapRange()
		for iter.Next() {
			value := reflect.New(field.Type().Elem()).Elem()
			value.SetString(iter.Value().String())
			e.expandString(value, fmt.Sprintf("%s.%s", path, iter.Key().String()))
			expanded.SetMapIndex(iter.Key(), value)
		}
		field.Set(expanded)
	}
}

func (e *expander) expandString(v reflect.Value, path string) {
	expanded, err := Expand(v.String(), e.variables)
	if err != nil {
		e.errs = errors.Join(e.errs, fmt.Errorf("%s: %w", path, err))
		return
	}
	v.SetString(expanded)
}

func fieldPath(parent string, sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("yaml"), ",")
	if name == "" || name == "-" {
		name = sf.Name
	}
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// Expand replaces ${VAR} references in the input string using the provided variables map.
// Returns an error if any referenced variable is not in the variables map.
func Expand(value string, variables map[string]string) (string, error) {
	var errs error

	result := os.Expand(value, func(key string) string {
		if val, ok := variables[key]; ok {
			return val
		}
		errs = errors.Join(errs, fmt.Errorf("environment variable %q is not in the allowed list", key))
		return ""
	})

	if errs != nil {
		return "", errs
	}

	return result, nil
}
