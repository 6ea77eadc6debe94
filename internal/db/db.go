package db

import (
	"fmt"

	"reviewsync/internal/client"
	"reviewsync/internal/review"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&client.Client{},
		&review.Platform{},
		&review.Review{},
		&review.PhotoPack{},
	); err != nil {
		return err
	}

	// Platform numbers are unique per client and immutable once created.
	stmts := []string{
		`create unique index if not exists uq_platforms_client_number on platforms(client_id, number);`,
		`create index if not exists idx_reviews_client_status on reviews(client_id, status);`,
		`create index if not exists idx_reviews_platform on reviews(platform_id, status);`,
		`create index if not exists idx_photo_packs_unsynced on photo_packs(client_id, synced);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
