// Package form owns a schema together with its derived FormData and
// ComputedData.
//
// A Form is the single writer of its schema. Callers change values through
// SetValue; the dependent options resolver reports reloaded options and
// value resets as events the form applies. Every change triggers an
// incremental recompute, and subscribers are notified once the state has
// settled.
//
//	f, err := form.New(ctx, schema)
//	if err != nil {
//		return err
//	}
//	_ = f.SetValue(ctx, "country", "malawi")
//	fmt.Println(f.FormData(), f.ComputedData())
package form
