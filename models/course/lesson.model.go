package course

import "gorm.io/gorm"

// Lesson is the orderable unit of content within a module
type Lesson struct {
	gorm.Model
	ModuleID    uint   `json:"module_id" gorm:"index;not null"`
	Title       string `json:"title"`
	ContentType string `json:"content_type" gorm:"default:'TEXT'"` // TEXT, VIDEO, QUIZ
	OrderIndex  int    `json:"order_index" gorm:"default:0"`       // Order within module
	IsDeleted   bool   `json:"-" gorm:"default:false"`
}
