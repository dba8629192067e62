package core

import "strings"

// DocStatus is the lifecycle state of a submittable document (attendance, grades, submissions).
type DocStatus int

const (
	DocDraft     DocStatus = 0
	DocSubmitted DocStatus = 1
	DocCancelled DocStatus = 2
)

func (ds DocStatus) IsDraft() bool     { return ds == DocDraft }
func (ds DocStatus) IsSubmitted() bool { return ds == DocSubmitted }

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderBy renders `orderings` as an SQL ORDER BY list, keeping only the allowed fields.
// `fallback` is used when nothing is left.
func OrderBy(orderings []DBOrdering, allowed map[string]string, fallback string) string {
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		if col, ok := allowed[ord.Field]; ok {
			parts = append(parts, DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, ", ")
}
