package models

import "time"

// User represents a registered member of the team.
type User struct {
	ID         string    `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Username   string    `json:"username" bson:"username" gorm:"uniqueIndex;type:varchar(255)"`
	Email      string    `json:"email" bson:"email" gorm:"uniqueIndex;type:varchar(255)"`
	Password   string    `json:"-" bson:"password" gorm:"type:varchar(255)"` // bcrypt hash, never serialized
	ProfilePic string    `json:"profilePic,omitempty" bson:"profile_pic,omitempty" gorm:"type:varchar(1024)"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}
