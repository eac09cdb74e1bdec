package transform

import (
	"context"
	"errors"
	"sort"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/values"
)

var errNotList = errors.New("value is not an option list")

// DeriveFormData reads every input field whose value is defined, applies its
// OnChange transform, and stores the result under the field id. Undefined
// values (and transforms that return nil) are omitted. A failing transform
// omits only its own field and is reported in the returned Errors.
func DeriveFormData(schema *model.Schema) (model.FormData, error) {
	data := make(model.FormData, schema.Len())
	var errs Errors
	schema.Range(func(id string, field *model.Field) bool {
		if field.Value == nil || !field.Type.IsInput() {
			return true
		}
		value := field.Value
		if field.OnChange != nil {
			out, err := field.OnChange(value, schema)
			if err != nil {
				errs = append(errs, FieldError{Field: id, Stage: StageChange, Err: err})
				return true
			}
			value = out
		}
		if value != nil {
			data[id] = value
		}
		return true
	})
	return data, errs.orNil()
}

// DeriveComputedData returns a new ComputedData built incrementally from
// previousComputed. See UpdateComputedData for the rules.
func DeriveComputedData(ctx context.Context, data, previous model.FormData, previousComputed model.ComputedData, schema *model.Schema) (model.ComputedData, error) {
	computed := previousComputed.Clone()
	_, err := UpdateComputedData(ctx, computed, data, previous, schema)
	return computed, err
}

// UpdateComputedData brings computed in line with data, touching only the
// keys whose value differs from previous under values.DeepEqual:
//   - empty values delete their computed entry;
//   - fields with Children are diffed per item and per child id, and only
//     changed child values are recomputed (a previous value that was not a
//     list forces a full rebuild);
//   - fields with ComputedValue are recomputed;
//   - keys missing from data lose their computed entry.
//
// Callback failures are isolated per field: the previous computed entry is
// kept and the failure is returned in Errors. The changed keys are returned
// in schema order.
func UpdateComputedData(ctx context.Context, computed model.ComputedData, data, previous model.FormData, schema *model.Schema) ([]string, error) {
	var (
		changed []string
		errs    Errors
	)

	schema.Range(func(id string, field *model.Field) bool {
		value, ok := data[id]
		if !ok {
			return true
		}
		if old, had := previous[id]; had && values.DeepEqual(value, old) {
			return true
		}

		if values.IsEmpty(value) {
			if _, exists := computed[id]; exists {
				delete(computed, id)
				changed = append(changed, id)
			}
			return true
		}

		switch {
		case field.Children != nil:
			rows, err := computeChildren(ctx, id, field, value, previous[id], computed[id], schema)
			if len(err) > 0 {
				errs = append(errs, err...)
			}
			if rows == nil {
				return true
			}
			computed[id] = rows
			changed = append(changed, id)
		case field.ComputedValue != nil:
			out, err := field.ComputedValue(ctx, value, schema)
			if err != nil {
				errs = append(errs, FieldError{Field: id, Stage: StageComputed, Err: err})
				return true
			}
			computed[id] = out
			changed = append(changed, id)
		default:
			if _, exists := computed[id]; exists {
				delete(computed, id)
				changed = append(changed, id)
			}
		}
		return true
	})

	var removed []string
	for id := range computed {
		if _, ok := data[id]; !ok {
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	for _, id := range removed {
		delete(computed, id)
		changed = append(changed, id)
	}

	return changed, errs.orNil()
}

// computeChildren derives one row per list item, mapping child ids to their
// computed (or raw) sub-values. A nil result means the entry is left as is.
func computeChildren(ctx context.Context, id string, field *model.Field, value, previous, previousRows any, schema *model.Schema) ([]map[string]any, Errors) {
	items, ok := model.OptionsOf(value)
	if !ok {
		return nil, Errors{{Field: id, Stage: StageChildren, Err: errNotList}}
	}

	prevItems, prevIsList := model.OptionsOf(previous)
	oldRows, _ := previousRows.([]map[string]any)
	incremental := prevIsList && oldRows != nil

	var errs Errors
	rows := make([]map[string]any, len(items))
	for idx, item := range items {
		row := make(map[string]any, len(item.Other))
		for _, childID := range sortedKeys(item.Other) {
			raw := item.Other[childID]

			if incremental && idx < len(prevItems) && idx < len(oldRows) {
				if values.DeepEqual(raw, prevItems[idx].Other[childID]) {
					if carried, ok := oldRows[idx][childID]; ok {
						row[childID] = carried
						continue
					}
				}
			}

			child, ok := field.Children.Field(childID)
			if !ok || child.ComputedValue == nil {
				row[childID] = raw
				continue
			}
			out, err := child.ComputedValue(ctx, raw, schema)
			if err != nil {
				errs = append(errs, FieldError{Field: id, Child: childID, Stage: StageComputed, Err: err})
				if idx < len(oldRows) {
					if carried, ok := oldRows[idx][childID]; ok {
						row[childID] = carried
					}
				}
				continue
			}
			row[childID] = out
		}
		rows[idx] = row
	}
	return rows, errs
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
