package facts

// Var marks a pattern position as a free variable to bind by name.
type Var string

type wildcard struct{}

// Any matches any value without binding it.
var Any = wildcard{}

// Binding maps variable names to the values they were bound to.
type Binding map[string]any

// String returns the named binding as a string, or "" when absent.
func (b Binding) String(name string) string {
	v, _ := b[name].(string)
	return v
}

// Int returns the named binding as an int. Float bindings are truncated.
func (b Binding) Int(name string) int {
	switch v := b[name].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// Float returns the named binding as a float64, promoting ints.
func (b Binding) Float(name string) float64 {
	switch v := b[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// Bool returns the named binding as a bool.
func (b Binding) Bool(name string) bool {
	v, _ := b[name].(bool)
	return v
}

// match tests a pattern against fact arguments. A short pattern matches the
// prefix; remaining arguments are unconstrained.
func match(pattern, args []any) (Binding, bool) {
	if len(pattern) > len(args) {
		return nil, false
	}
	var b Binding
	for i, p := range pattern {
		switch pv := p.(type) {
		case wildcard:
			continue
		case Var:
			if b == nil {
				b = make(Binding)
			}
			if prev, ok := b[string(pv)]; ok {
				// Repeated variable: both positions must agree.
				if prev != args[i] {
					return nil, false
				}
				continue
			}
			b[string(pv)] = args[i]
		default:
			if p != args[i] {
				return nil, false
			}
		}
	}
	if b == nil {
		b = Binding{}
	}
	return b, true
}
