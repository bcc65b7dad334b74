package metadata

import "fmt"

// ExtractionWarning reports a pattern that could not be evaluated.
type ExtractionWarning struct {
	Signal  string
	Pattern string
	Err     error
}

func (w *ExtractionWarning) Error() string {
	return fmt.Sprintf("extracting %s with %q: %v", w.Signal, w.Pattern, w.Err)
}

func (w *ExtractionWarning) Unwrap() error {
	return w.Err
}
