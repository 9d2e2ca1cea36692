package models

import "time"

// Post is an image-backed feed entry. CreatorID is set once at creation
// and never reassigned; only the creator may edit or delete the post.
type Post struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Title     string    `json:"title" gorm:"type:varchar(255)" validate:"required,min=5"`
	Content   string    `json:"content" gorm:"type:text" validate:"required,min=5"`
	ImageURL  string    `json:"imageUrl" gorm:"type:varchar(255)"`
	CreatorID string    `json:"creatorId" gorm:"type:varchar(36);index"`
	Creator   *User     `json:"creator,omitempty" gorm:"foreignKey:CreatorID"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
