// Package dbtest opens throwaway SQLite databases with the full schema for tests.
package dbtest

import (
	"academy/database"
	"academy/models"
	courseModels "academy/models/course"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns a migrated in-memory database that lives until the test ends.
// A single connection serializes writers the way a real database would lock rows.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts an active user
func CreateUser(t testing.TB, db *gorm.DB, email string) models.User {
	t.Helper()
	user := models.User{Name: email, Email: email, Password: "x", Role: models.RoleUser}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// CreateCourse inserts a published course with one module per entry of
// lessonsPerModule, each holding that many lessons. Modules and lessons are
// inserted in reverse order so callers can check ordering is by order_index.
func CreateCourse(t testing.TB, db *gorm.DB, slug string, price int64, lessonsPerModule ...int) courseModels.Course {
	t.Helper()
	course := courseModels.Course{Slug: slug, Title: "Course " + slug, Price: price, Currency: "usd", IsPublished: true}
	if err := db.Create(&course).Error; err != nil {
		t.Fatalf("create course: %v", err)
	}
	for m := len(lessonsPerModule) - 1; m >= 0; m-- {
		module := courseModels.Module{CourseID: course.ID, Title: fmt.Sprintf("Module %d", m), OrderIndex: m}
		if err := db.Create(&module).Error; err != nil {
			t.Fatalf("create module: %v", err)
		}
		for l := lessonsPerModule[m] - 1; l >= 0; l-- {
			lesson := courseModels.Lesson{ModuleID: module.ID, Title: fmt.Sprintf("Lesson %d.%d", m, l), OrderIndex: l}
			if err := db.Create(&lesson).Error; err != nil {
				t.Fatalf("create lesson: %v", err)
			}
		}
	}
	return course
}

// LessonIDs returns the course's lesson ids in module/lesson order
func LessonIDs(t testing.TB, db *gorm.DB, courseID uint) []uint {
	t.Helper()
	var ids []uint
	err := db.Model(&courseModels.Lesson{}).
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("modules.course_id = ?", courseID).
		Order("modules.order_index, lessons.order_index, lessons.id").
		Pluck("lessons.id", &ids).Error
	if err != nil {
		t.Fatalf("lesson ids: %v", err)
	}
	return ids
}

// Count returns the number of rows of model matching the optional condition
func Count(t testing.TB, db *gorm.DB, model interface{}, query ...interface{}) int64 {
	t.Helper()
	var n int64
	tx := db.Model(model)
	if len(query) > 0 {
		tx = tx.Where(query[0], query[1:]...)
	}
	if err := tx.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
