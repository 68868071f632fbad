package rules

import "github.com/aafarian/hantibink-sub003/internal/domain/model"

// MainPhotoURL picks the photo flagged as main, else the first photo, else
// the placeholder.
func MainPhotoURL(photos []model.Photo, placeholder string) string {
	for _, photo := range photos {
		if photo.IsMain {
			return photo.URL
		}
	}
	if len(photos) > 0 {
		return photos[0].URL
	}
	return placeholder
}
