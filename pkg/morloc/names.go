package morloc

// MVar names a module.
type MVar string

// EVar names an expression-level term.
type EVar string

func (m MVar) String() string { return string(m) }
func (e EVar) String() string { return string(e) }
