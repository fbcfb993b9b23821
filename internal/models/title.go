package models

import "time"

// Title groups daily scrum work under a named project with an owner and a member roster.
type Title struct {
	ID        string    `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"title" bson:"title" gorm:"column:title;type:varchar(255);not null"`
	UserID    string    `json:"user_id" bson:"user_id" gorm:"index;type:varchar(36)"`
	Members   []string  `json:"member" bson:"member" gorm:"column:members;serializer:json;type:text"`
	Version   int       `json:"version" bson:"version" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// HasMember reports whether userID is on the roster.
func (t *Title) HasMember(userID string) bool {
	for _, m := range t.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// Member is a roster entry resolved to its username.
type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// TitleView is the denormalized shape returned to clients and cached.
type TitleView struct {
	ID        string    `json:"id"`
	Name      string    `json:"title"`
	UserID    string    `json:"user_id"`
	Members   []Member  `json:"member"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
