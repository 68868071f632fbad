package enums

type RemoveReason string

const (
	RemoveMatched RemoveReason = "matched"
	RemovePassed  RemoveReason = "passed"
	RemoveOther   RemoveReason = "other"
)

// ParseRemoveReason maps unknown wire values to RemoveOther.
func ParseRemoveReason(value string) RemoveReason {
	switch RemoveReason(value) {
	case RemoveMatched, RemovePassed:
		return RemoveReason(value)
	}
	return RemoveOther
}
