package models

import "time"

type User struct {
	ID                  uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Username            string     `gorm:"uniqueIndex;not null"     json:"username"`
	Email               string     `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash        string     `gorm:"not null"                 json:"-"`
	Role                string     `gorm:"not null"                 json:"role"`
	SchoolID            *uint      `gorm:"index"                    json:"school_id,omitempty"`
	FailedLoginAttempts int        `gorm:"not null;default:0"       json:"-"`
	LockoutUntil        *time.Time `json:"-"`
	IsSeeded            bool       `gorm:"not null;default:false"   json:"-"`
	IsDeleted           bool       `gorm:"not null;default:false"   json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type School struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null"     json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	IsDeleted bool      `gorm:"not null;default:false"   json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
