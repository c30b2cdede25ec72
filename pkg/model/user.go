package model

import "time"

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:64" json:"username"`
	CustomerID   string    `gorm:"size:64" json:"customerId"`
	PasswordHash string    `json:"-"`
	Role         string    `gorm:"size:16" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsAdmin is a plain role compare; there is no permission model beyond it.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
