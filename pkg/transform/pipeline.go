package transform

import (
	"context"
	"errors"
	"sort"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/values"
)

// Changes lists the keys a recompute pass touched.
type Changes struct {
	Data     []string
	Computed []string
}

// Empty reports whether the pass changed nothing.
func (c Changes) Empty() bool {
	return len(c.Data) == 0 && len(c.Computed) == 0
}

// Pipeline keeps FormData and ComputedData for one schema and recomputes
// them incrementally. It is not safe for concurrent use; the owning form
// serialises access.
type Pipeline struct {
	data     model.FormData
	snapshot model.FormData
	computed model.ComputedData
}

// NewPipeline constructs an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		data:     model.FormData{},
		snapshot: model.FormData{},
		computed: model.ComputedData{},
	}
}

// Recompute derives FormData from schema and updates ComputedData for the
// keys whose value changed since the previous pass. Fields whose callbacks
// fail keep their previous entries and are retried on the next pass.
func (p *Pipeline) Recompute(ctx context.Context, schema *model.Schema) (Changes, error) {
	if err := ctx.Err(); err != nil {
		return Changes{}, err
	}

	var errs Errors
	data, err := DeriveFormData(schema)
	if err != nil {
		var derived Errors
		if !errors.As(err, &derived) {
			return Changes{}, err
		}
		errs = append(errs, derived...)
		for _, id := range derived.Fields() {
			if prev, ok := p.data[id]; ok {
				data[id] = prev
			}
		}
	}

	changes := Changes{Data: diffKeys(p.data, data)}

	changed, err := UpdateComputedData(ctx, p.computed, data, p.snapshot, schema)
	changes.Computed = changed

	snapshot := data.Clone()
	if err != nil {
		var computeErrs Errors
		if !errors.As(err, &computeErrs) {
			return changes, err
		}
		errs = append(errs, computeErrs...)
		for _, id := range computeErrs.Fields() {
			if prev, ok := p.snapshot[id]; ok {
				snapshot[id] = prev
			} else {
				delete(snapshot, id)
			}
		}
	}

	p.data = data.Clone()
	p.snapshot = snapshot
	return changes, errs.orNil()
}

// Invalidate forgets the snapshot for ids (every key when none are given)
// so the next pass recomputes them even if their values did not change.
func (p *Pipeline) Invalidate(ids ...string) {
	if len(ids) == 0 {
		p.snapshot = model.FormData{}
		return
	}
	for _, id := range ids {
		delete(p.snapshot, id)
	}
}

// FormData returns a copy of the current FormData.
func (p *Pipeline) FormData() model.FormData {
	return p.data.Clone()
}

// ComputedData returns a copy of the current ComputedData.
func (p *Pipeline) ComputedData() model.ComputedData {
	return p.computed.Clone()
}

// Value returns the current FormData entry for id without copying.
func (p *Pipeline) Value(id string) (any, bool) {
	v, ok := p.data[id]
	return v, ok
}

func diffKeys(before, after model.FormData) []string {
	var out []string
	for id, value := range after {
		if old, ok := before[id]; !ok || !values.DeepEqual(old, value) {
			out = append(out, id)
		}
	}
	for id := range before {
		if _, ok := after[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
