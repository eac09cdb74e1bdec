package form

import (
	"sort"
)

// EventKind enumerates form notifications.
type EventKind int

const (
	// EventValueChanged lists FormData keys that changed.
	EventValueChanged EventKind = iota + 1
	// EventComputedChanged lists ComputedData keys that changed.
	EventComputedChanged
	// EventOptionsUpdated reports a replaced option list.
	EventOptionsUpdated
	// EventValueReset reports a selection cleared after an options reload.
	EventValueReset
	// EventReset reports that the form was restored to its defaults.
	EventReset
)

func (k EventKind) String() string {
	switch k {
	case EventValueChanged:
		return "value-changed"
	case EventComputedChanged:
		return "computed-changed"
	case EventOptionsUpdated:
		return "options-updated"
	case EventValueReset:
		return "value-reset"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after the form state settled.
type Event struct {
	Kind   EventKind
	Fields []string
}

// Listener receives form events. Listeners run synchronously on the
// goroutine that caused the change and may call back into the form.
type Listener func(Event)

// Subscribe registers fn and returns a function that removes it.
func (f *Form) Subscribe(fn Listener) func() {
	if f == nil || fn == nil {
		return func() {}
	}
	f.subsMu.Lock()
	f.nextSub++
	id := f.nextSub
	f.subs[id] = fn
	f.subsMu.Unlock()

	return func() {
		f.subsMu.Lock()
		delete(f.subs, id)
		f.subsMu.Unlock()
	}
}

func (f *Form) publish(kind EventKind, fields ...string) {
	f.subsMu.RLock()
	if len(f.subs) == 0 {
		f.subsMu.RUnlock()
		return
	}
	ids := make([]uint64, 0, len(f.subs))
	for id := range f.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, f.subs[id])
	}
	f.subsMu.RUnlock()

	event := Event{Kind: kind, Fields: append([]string(nil), fields...)}
	for _, listener := range listeners {
		listener(event)
	}
}
