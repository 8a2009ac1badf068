package domain

import (
	"time"

	"github.com/google/uuid"
)

const MaxTitleLength = 255

type Todo struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;index:idx_todos_owner_order,priority:3"`
	OwnerID      uuid.UUID `json:"-" gorm:"type:uuid;not null;index:idx_todos_owner_order,priority:1"`
	Title        string    `json:"title" gorm:"size:255;not null"`
	Descriptions *string   `json:"descriptions" gorm:"type:text"`
	IsDone       bool      `json:"is_done" gorm:"not null;default:false"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null;index:idx_todos_owner_order,priority:2"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"not null"`

	Owner *User `json:"-" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
}

// OwnedBy is the ownership gate every service operation passes through.
func (t *Todo) OwnedBy(userID uuid.UUID) bool {
	return t != nil && t.OwnerID == userID
}
