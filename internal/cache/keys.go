package cache

// Cache keys. Collection keys are dropped whenever any member changes, item keys
// whenever that item changes. Item keys live under their own ":item:" segment so
// no id can collide with a collection key.
const (
	DailyScrumAllKey = "daily-scrum:all"
	TitlesAllKey     = "titles:all"
)

// DailyScrumKey is the key of a single post view.
func DailyScrumKey(id string) string { return "daily-scrum:item:" + id }

// DailyScrumUserKey is the key of the posts written by userID.
func DailyScrumUserKey(userID string) string { return "daily-scrum:user:" + userID }

// TitleKey is the key of a single title view.
func TitleKey(id string) string { return "titles:item:" + id }

// UserTitlesKey is the key of the titles visible to userID.
func UserTitlesKey(userID string) string { return "titles:all:user:" + userID }
