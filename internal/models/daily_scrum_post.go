package models

import "time"

// Review is a peer review embedded in a DailyScrumPost.
type Review struct {
	ID         string    `json:"id" bson:"id"`
	ReviewText string    `json:"review_text" bson:"review_text"`
	Score      string    `json:"score" bson:"score"` // free text, not validated as a number
	Reviewer   string    `json:"reviewer" bson:"reviewer"`
	ReviewerID string    `json:"reviewer_id" bson:"reviewer_id"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// DailyScrumPost is a single status update written by a user.
type DailyScrumPost struct {
	ID        string    `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Title     string    `json:"title" bson:"title" gorm:"type:varchar(255)"`
	Daily     string    `json:"daily" bson:"daily" gorm:"type:text"`
	Problem   string    `json:"problem" bson:"problem" gorm:"type:text"`
	Todo      string    `json:"todo" bson:"todo" gorm:"type:text"`
	Writer    string    `json:"writer" bson:"writer" gorm:"type:varchar(255)"`
	UserID    string    `json:"user_id" bson:"user_id" gorm:"index;type:varchar(36)"`
	Files     []string  `json:"files" bson:"files" gorm:"serializer:json;type:text"`
	Reviews   []Review  `json:"reviews" bson:"reviews" gorm:"serializer:json;type:text"`
	Version   int       `json:"version" bson:"version" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// ReviewIndex returns the position of the review with the given id, or -1.
func (p *DailyScrumPost) ReviewIndex(reviewID string) int {
	for i := range p.Reviews {
		if p.Reviews[i].ID == reviewID {
			return i
		}
	}
	return -1
}

// FileIndex returns the position of the stored file key, or -1.
func (p *DailyScrumPost) FileIndex(key string) int {
	for i, f := range p.Files {
		if f == key {
			return i
		}
	}
	return -1
}

// FileLocator pairs a stored file key with a URL the client can fetch directly.
type FileLocator struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// DailyScrumPostView is a post with its file keys resolved to locators.
type DailyScrumPostView struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Daily     string        `json:"daily"`
	Problem   string        `json:"problem"`
	Todo      string        `json:"todo"`
	Writer    string        `json:"writer"`
	UserID    string        `json:"user_id"`
	Files     []FileLocator `json:"files"`
	Reviews   []Review      `json:"reviews"`
	Version   int           `json:"version"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
