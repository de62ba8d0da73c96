package taski

import (
	"fmt"
	"reflect"
)

// exportNames returns the exported (capitalized) field names of a task's
// underlying struct, in declaration order. This is the engine's "static
// export table": T.<attr> is a lookup against this table, not
// metaprogramming (Design Note 9).
func exportNames(task Task) []string {
	v := reflect.ValueOf(task)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	t := v.Type()
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" { // unexported
			continue
		}
		names = append(names, f.Name)
	}
	return names
}

// exportValue reads an exported attribute off a completed task instance.
func exportValue(task Task, attr string) (any, error) {
	v := reflect.ValueOf(task)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, fmt.Errorf("taski: task instance is nil")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("taski: task is not a struct, has no exported attributes")
	}
	fv := v.FieldByName(attr)
	if !fv.IsValid() {
		return nil, fmt.Errorf("taski: task has no exported attribute %q", attr)
	}
	f, ok := v.Type().FieldByName(attr)
	if !ok || f.PkgPath != "" {
		return nil, fmt.Errorf("taski: %q is not an exported attribute", attr)
	}
	return fv.Interface(), nil
}

// copyExports forwards every field named in names from src onto dst.
// Used by Section to present a runtime-selected implementation's exports as
// its own (§4.8).
func copyExports(dst, src Task, names []string) error {
	dv := reflect.ValueOf(dst)
	for dv.Kind() == reflect.Ptr {
		dv = dv.Elem()
	}
	sv := reflect.ValueOf(src)
	for sv.Kind() == reflect.Ptr {
		sv = sv.Elem()
	}
	if dv.Kind() != reflect.Struct || sv.Kind() != reflect.Struct {
		return fmt.Errorf("taski: section forwarding requires struct-backed tasks")
	}
	for _, name := range names {
		dst := dv.FieldByName(name)
		src := sv.FieldByName(name)
		if !dst.IsValid() || !src.IsValid() {
			continue
		}
		if !dst.CanSet() || dst.Type() != src.Type() {
			continue
		}
		dst.Set(src)
	}
	return nil
}
