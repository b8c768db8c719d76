package textnorm

import (
	"fmt"
	"strings"
)

// EmptyTextError lists records whose title and abstract produced no tokens.
// It is reported, never fatal: the records are excluded and counted.
type EmptyTextError struct {
	IDs []string
}

func (e *EmptyTextError) Error() string {
	const show = 10
	ids := e.IDs
	suffix := ""
	if len(ids) > show {
		suffix = fmt.Sprintf(" (+%d more)", len(ids)-show)
		ids = ids[:show]
	}
	return fmt.Sprintf("%d record(s) have no tokens after normalization: %s%s", len(e.IDs), strings.Join(ids, ", "), suffix)
}
