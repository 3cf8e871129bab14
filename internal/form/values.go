package form

import "fmt"

// InputKind selects the primitive used to post a value
type InputKind int

const (
	InputText InputKind = iota
	InputSelect
	InputCheck
	InputUncheck
)

func (k InputKind) String() string {
	switch k {
	case InputText:
		return "fill"
	case InputSelect:
		return "select"
	case InputCheck:
		return "check"
	case InputUncheck:
		return "uncheck"
	}
	return fmt.Sprintf("InputKind(%d)", int(k))
}

// Value is one field of a submission
type Value struct {
	Locator string
	Value   string
	Kind    InputKind
}

// Values is a submission in the order the fields are posted. Order matters:
// some selects trigger AJAX that adds later fields.
type Values []Value

func Text(locator, value string) Value   { return Value{Locator: locator, Value: value, Kind: InputText} }
func Select(locator, value string) Value { return Value{Locator: locator, Value: value, Kind: InputSelect} }
func Checked(locator string) Value       { return Value{Locator: locator, Kind: InputCheck} }
func Unchecked(locator string) Value     { return Value{Locator: locator, Kind: InputUncheck} }

// Expected returns locator -> posted value for text and select values
func (vs Values) Expected() map[string]string {
	out := make(map[string]string, len(vs))
	for _, v := range vs {
		if v.Kind == InputText || v.Kind == InputSelect {
			out[v.Locator] = v.Value
		}
	}
	return out
}
