package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/campus-backend/internal/domain/auth"
	"github.com/yungbote/campus-backend/internal/domain/course"
	"github.com/yungbote/campus-backend/internal/domain/user"
)

// Models lists every persisted entity in dependency order.
func Models() []any {
	return []any{
		// identity + auth
		&user.User{},
		&user.Profile{},
		&auth.UserToken{},

		// catalog
		&course.Course{},
		&course.Enrollment{},
	}
}

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
