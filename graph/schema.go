package graph

import (
	"fmt"
	"maps"
	"reflect"
)

// Schema defines the initial value and merge logic for the graph state.
// Nodes return partial updates; the schema folds them into the state.
type Schema[S any] interface {
	// Init returns the initial state.
	Init() S

	// Update merges the incoming update into the current state.
	Update(current, incoming S) (S, error)
}

// Reducer merges an incoming value into the current value for one map key.
type Reducer func(current, incoming any) (any, error)

// MapSchema implements Schema for map[string]any states, with per-key reducers.
// Keys without a registered reducer are overwritten.
type MapSchema struct {
	Reducers map[string]Reducer
}

// NewMapSchema creates an empty MapSchema.
func NewMapSchema() *MapSchema {
	return &MapSchema{Reducers: make(map[string]Reducer)}
}

// RegisterReducer installs a reducer for a key.
func (s *MapSchema) RegisterReducer(key string, reducer Reducer) {
	s.Reducers[key] = reducer
}

// Init returns an empty map.
func (s *MapSchema) Init() map[string]any {
	return make(map[string]any)
}

// Update merges the incoming map into a copy of the current map.
func (s *MapSchema) Update(current, incoming map[string]any) (map[string]any, error) {
	result := make(map[string]any, len(current)+len(incoming))
	maps.Copy(result, current)

	for k, v := range incoming {
		reducer, ok := s.Reducers[k]
		if !ok {
			result[k] = v
			continue
		}
		merged, err := reducer(result[k], v)
		if err != nil {
			return nil, fmt.Errorf("failed to reduce key %s: %w", k, err)
		}
		result[k] = merged
	}

	return result, nil
}

// StructSchema implements Schema for struct states with a caller-provided
// merge function.
type StructSchema[S any] struct {
	initial S
	merge   func(current, incoming S) (S, error)
}

// NewStructSchema creates a StructSchema from an initial value and a merge function.
func NewStructSchema[S any](initial S, merge func(current, incoming S) (S, error)) *StructSchema[S] {
	return &StructSchema[S]{initial: initial, merge: merge}
}

// Init returns the initial value.
func (s *StructSchema[S]) Init() S {
	return s.initial
}

// Update applies the merge function.
func (s *StructSchema[S]) Update(current, incoming S) (S, error) {
	return s.merge(current, incoming)
}

// OverwriteReducer replaces the current value with the incoming one.
func OverwriteReducer(current, incoming any) (any, error) {
	return incoming, nil
}

// AppendReducer appends the incoming value to the current slice. It accepts
// either a slice (appended element-wise) or a single element.
func AppendReducer(current, incoming any) (any, error) {
	if current == nil {
		iv := reflect.ValueOf(incoming)
		if iv.Kind() == reflect.Slice {
			return incoming, nil
		}
		slice := reflect.MakeSlice(reflect.SliceOf(reflect.TypeOf(incoming)), 0, 1)
		return reflect.Append(slice, iv).Interface(), nil
	}

	cv := reflect.ValueOf(current)
	iv := reflect.ValueOf(incoming)

	if cv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("current value is not a slice")
	}

	if iv.Kind() == reflect.Slice {
		if cv.Type().Elem() != iv.Type().Elem() {
			// Element types differ, fall back to []any.
			result := make([]any, 0, cv.Len()+iv.Len())
			for i := 0; i < cv.Len(); i++ {
				result = append(result, cv.Index(i).Interface())
			}
			for i := 0; i < iv.Len(); i++ {
				result = append(result, iv.Index(i).Interface())
			}
			return result, nil
		}
		return reflect.AppendSlice(cv, iv).Interface(), nil
	}

	return reflect.Append(cv, iv).Interface(), nil
}
