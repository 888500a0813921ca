package gateway

// PointDef is the canonical identity assigned to a gateway point by
// configuration: the downstream variable name and its semantic type.
type PointDef struct {
	Name string
	Type string
}

// Reading is one decoded entry from a batch reply, paired with the gateway
// point it was requested for.
//
// A Reading is either a value (Value holds a bool, int64 or float64 according
// to the entry's tag, Unit optionally set) or a gateway-reported error
// (Err true, Message human readable). The two forms are mutually exclusive.
type Reading struct {
	// PointID is the gateway-side point identifier.
	PointID string

	// Name and Type are the canonical identity from the point mapping.
	// Empty on error readings.
	Name string
	Type string

	// Value is the coerced value: bool, int64 or float64.
	Value any

	// Unit is the path basename of the entry's unit attribute, if present.
	Unit string

	// Err marks a gateway-reported or undecodable entry.
	Err bool

	// Message describes the error when Err is true.
	Message string
}

// IsNumeric reports whether the reading carries an int or real value.
// Bounds filtering only applies to numeric readings.
func (r Reading) IsNumeric() bool {
	switch r.Value.(type) {
	case int64, float64:
		return true
	}
	return false
}

// Float returns the reading's value as a float64 for bounds comparison.
// Only meaningful when IsNumeric is true.
func (r Reading) Float() float64 {
	switch v := r.Value.(type) {
	case int64:
		return float64(v)
	case float64:
		return v
	}
	return 0
}
