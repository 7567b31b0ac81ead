package seeders

import (
	"context"
	"log"
	"os"

	"gorm.io/gorm"
)

// MainSeeder coordinates all seeding operations
type MainSeeder struct {
	db  *gorm.DB
	uid string
}

func NewMainSeeder(db *gorm.DB) *MainSeeder {
	uid := os.Getenv("SEED_USER_UID")
	if uid == "" {
		uid = "demo-user"
	}
	return &MainSeeder{db: db, uid: uid}
}

// SeedAll creates the demo user and then its library.
func (s *MainSeeder) SeedAll() error {
	log.Println("Starting database seeding...")

	user, err := NewUserSeeder(s.db).SeedDemoUser(context.Background(), s.uid)
	if err != nil {
		log.Printf("User seeding failed: %v", err)
		return err
	}

	if err := NewContentSeeder(s.db).SeedLibrary(context.Background(), user.ID); err != nil {
		log.Printf("Content seeding failed: %v", err)
		return err
	}

	log.Println("Database seeding completed successfully!")
	return nil
}

func (s *MainSeeder) SeedUsersOnly() error {
	_, err := NewUserSeeder(s.db).SeedDemoUser(context.Background(), s.uid)
	return err
}

// SeedContentOnly requires the demo user to exist already.
func (s *MainSeeder) SeedContentOnly() error {
	ctx := context.Background()
	user, err := NewUserSeeder(s.db).users.GetByUID(ctx, nil, s.uid)
	if err != nil {
		return err
	}
	return NewContentSeeder(s.db).SeedLibrary(ctx, user.ID)
}
