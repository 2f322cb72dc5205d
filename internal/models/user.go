package models

import "time"

// User is an operator account. The shop has no public accounts; customers
// order anonymously through the phone verification gate.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Username  string `gorm:"not null;uniqueIndex"`
	Password  string `gorm:"not null"` // bcrypt hash
	CreatedAt time.Time
	UpdatedAt time.Time
}
