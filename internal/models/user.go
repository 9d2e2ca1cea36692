package models

import "time"

// User represents a registered member of the feed.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name      string    `json:"name" gorm:"type:varchar(100)" validate:"required"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password  string    `json:"-" gorm:"type:varchar(255)" validate:"required,min=5"` // bcrypt hash after registration
	Status    string    `json:"status" gorm:"type:varchar(255);default:'I am new!'"`
	Posts     []Post    `json:"posts,omitempty" gorm:"foreignKey:CreatorID"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PublicProfile is the creator summary embedded in post payloads.
type PublicProfile struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// Public returns the identity fields safe to expose alongside a post.
func (u *User) Public() PublicProfile {
	return PublicProfile{UserID: u.ID, Name: u.Name}
}
