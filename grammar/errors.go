package grammar

// ValidationError reports the first structural or semantic violation found
// in a filter document. Path locates the offending node, e.g. "and[1]", and
// is empty for the root.
type ValidationError struct {
	Path string
	Msg  string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Msg
	}
	return e.Path + ": " + e.Msg
}

func fail(path, msg string) error {
	return &ValidationError{Path: path, Msg: msg}
}
