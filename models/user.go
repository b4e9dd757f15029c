package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a staff account (admins, rechargers, stall staff)
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Phone       string         `gorm:"uniqueIndex;not null" json:"phone"`
	Email       *string        `json:"email,omitempty"`
	Password    string         `gorm:"not null" json:"-"`
	Role        Role           `gorm:"not null" json:"role"`
	MotherStall *string        `json:"mother_stall,omitempty"` // set for stall staff
	StallID     *uint          `gorm:"index" json:"stall_id,omitempty"`
	OTP         *string        `json:"-"`
	OTPExpires  *time.Time     `json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}
