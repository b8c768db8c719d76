package dataset

import (
	"fmt"
	"strings"
)

// SchemaError indicates required columns are absent from the header.
type SchemaError struct {
	Path    string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error in %s: missing required column(s): %s", e.Path, strings.Join(e.Missing, ", "))
}
