package rules

import "github.com/aafarian/hantibink-sub003/internal/domain/model"

// LikeBefore is the inbox display order: super-likes first, then most recent
// first. Equal-rank entries keep their relative input order, so callers must
// use a stable sort.
func LikeBefore(a, b model.IncomingLike) bool {
	if a.IsSuperLike != b.IsSuperLike {
		return a.IsSuperLike
	}
	return a.LikedAt.After(b.LikedAt)
}
