package course

import "gorm.io/gorm"

// Course represents a purchasable learning course
type Course struct {
	gorm.Model
	Slug        string   `json:"slug" gorm:"type:varchar(191);uniqueIndex;not null"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Author      string   `json:"author"`
	Price       int64    `json:"price" gorm:"default:0"` // minor units
	Currency    string   `json:"currency" gorm:"type:varchar(10);default:'usd'"`
	IsPublished bool     `json:"is_published" gorm:"default:false"`
	IsDeleted   bool     `json:"-" gorm:"default:false"`
	Modules     []Module `json:"modules,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}
