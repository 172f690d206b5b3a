package models

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID          uint      `gorm:"column:user_id;primaryKey" json:"user_id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	PhoneNumber string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"phone_number"`
	Email       string    `gorm:"type:varchar(255);not null" json:"email"`
	Password    string    `gorm:"type:varchar(255);not null" json:"-"`
	Role        string    `gorm:"type:varchar(16);not null;default:'user';check:chk_users_role,role IN ('admin','user')" json:"role"`
	Address     string    `gorm:"type:text" json:"address"`
	City        string    `gorm:"type:varchar(128)" json:"city"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// PublicProfile is the subset of a user that may leave the server.
type PublicProfile struct {
	ID          uint   `json:"user_id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Address     string `json:"address"`
	City        string `json:"city"`
}

func (u *User) Profile() PublicProfile {
	return PublicProfile{
		ID:          u.ID,
		Name:        u.Name,
		PhoneNumber: u.PhoneNumber,
		Email:       u.Email,
		Role:        u.Role,
		Address:     u.Address,
		City:        u.City,
	}
}
