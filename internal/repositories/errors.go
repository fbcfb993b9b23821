package repositories

import "errors"

var (
	// ErrNotFound is returned when the requested document does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique field collides with an existing document.
	ErrDuplicate = errors.New("duplicate record")
	// ErrVersionConflict is returned when a compare-and-swap update loses a race.
	ErrVersionConflict = errors.New("version conflict")
)

// likePattern builds a case-insensitive LIKE pattern matching s anywhere, escaping
// the wildcard characters so the filter is a plain substring match.
func likePattern(s string) string {
	out := make([]rune, 0, len(s)+2)
	out = append(out, '%')
	for _, r := range s {
		switch r {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(append(out, '%'))
}
