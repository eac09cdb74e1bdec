package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// FieldKind enumerates the closed set of descriptor kinds a schema can hold.
// Input kinds render widgets; KindSection only groups fields visually.
type FieldKind int

const (
	KindUnknown FieldKind = iota
	KindText
	KindDate
	KindNumber
	KindEmail
	KindPassword
	KindSelect
	KindTextArea
	KindRepeat
	KindCheckbox
	KindRadio
	KindSection
)

var kindNames = map[FieldKind]string{
	KindText:     "TextInput",
	KindDate:     "DateInput",
	KindNumber:   "NumberInput",
	KindEmail:    "EmailInput",
	KindPassword: "PasswordInput",
	KindSelect:   "SelectInput",
	KindTextArea: "TextAreaInput",
	KindRepeat:   "RepeatInput",
	KindCheckbox: "CheckboxInput",
	KindRadio:    "RadioInput",
	KindSection:  "section",
}

var kindLookup = func() map[string]FieldKind {
	out := make(map[string]FieldKind, len(kindNames)*2)
	for kind, name := range kindNames {
		out[strings.ToLower(name)] = kind
		out[strings.ToLower(strings.TrimSuffix(name, "Input"))] = kind
	}
	return out
}()

// ParseFieldKind resolves a descriptor type name ("TextInput", "select",
// "section", ...) into its FieldKind. Matching ignores case and the optional
// "Input" suffix.
func ParseFieldKind(raw string) (FieldKind, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return KindUnknown, goerr.Wrap(ErrUnknownKind, "field type is empty")
	}
	if kind, ok := kindLookup[key]; ok {
		return kind, nil
	}
	return KindUnknown, goerr.Wrap(ErrUnknownKind, "unsupported field type", goerr.V("type", raw))
}

// String returns the canonical type name.
func (k FieldKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsInput reports whether the kind holds a value (every kind except
// sections and the zero value).
func (k FieldKind) IsInput() bool {
	return k >= KindText && k <= KindRadio
}

// AcceptsOptions reports whether the kind selects from an option list.
func (k FieldKind) AcceptsOptions() bool {
	switch k {
	case KindSelect, KindRadio, KindCheckbox, KindRepeat:
		return true
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k FieldKind) MarshalText() ([]byte, error) {
	if k == KindUnknown {
		return nil, goerr.Wrap(ErrUnknownKind, "cannot encode unknown field kind")
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *FieldKind) UnmarshalText(text []byte) error {
	kind, err := ParseFieldKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}
