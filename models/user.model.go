package models

import "gorm.io/gorm"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type User struct {
	gorm.Model
	Name      string `json:"name" gorm:"default:''"`
	Email     string `json:"email" gorm:"type:varchar(191);unique;not null"`
	Password  string `json:"-" gorm:"not null"`
	Role      string `json:"role" gorm:"default:'USER'"` // USER, ADMIN
	IsDeleted bool   `json:"-" gorm:"default:false"`
}
