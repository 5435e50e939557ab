package errs

// Violations accumulates field-level validation failures so that one
// response can enumerate every violated field, instead of failing on
// the first one.
type Violations struct {
	fields map[string]string
	order  []string
}

// Add records a violation for the given field. The first message per
// field wins.
func (v *Violations) Add(field, message string) {
	if v.fields == nil {
		v.fields = map[string]string{}
	}
	if _, ok := v.fields[field]; ok {
		return
	}
	v.fields[field] = message
	v.order = append(v.order, field)
}

// Empty reports whether no violations have been recorded.
func (v *Violations) Empty() bool {
	return len(v.fields) == 0
}

// Err returns an EINVALID error carrying all recorded violations,
// or nil if there are none.
func (v *Violations) Err() error {
	if v.Empty() {
		return nil
	}
	fields := make(map[string]string, len(v.fields))
	for k, m := range v.fields {
		fields[k] = m
	}
	return &Error{
		Code:    EINVALID,
		Message: "Validation failed.",
		Fields:  fields,
	}
}
