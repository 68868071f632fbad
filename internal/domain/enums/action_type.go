package enums

type ActionType string

const (
	ActionLike      ActionType = "like"
	ActionSuperLike ActionType = "superlike"
	ActionPass      ActionType = "pass"
)

func (a ActionType) Valid() bool {
	switch a {
	case ActionLike, ActionSuperLike, ActionPass:
		return true
	}
	return false
}
