package seeders

import (
	"context"
	"errors"
	"log"

	"github.com/learnproof/learnproof-api/model"
	"github.com/learnproof/learnproof-api/services/repositories"
	"gorm.io/gorm"
)

type UserSeeder struct {
	users *repositories.UserRepository
}

func NewUserSeeder(db *gorm.DB) *UserSeeder {
	return &UserSeeder{users: repositories.NewUserRepository(db)}
}

// SeedDemoUser returns the existing profile for uid or creates a fresh one.
func (s *UserSeeder) SeedDemoUser(ctx context.Context, uid string) (*model.UserProfile, error) {
	existing, err := s.users.GetByUID(ctx, nil, uid)
	if err == nil {
		log.Printf("User %s already exists, skipping", uid)
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	email := uid + "@example.com"
	user := &model.UserProfile{
		UID:   uid,
		Email: &email,
		Name:  "Demo Learner",
	}
	if err := s.users.Create(ctx, nil, user); err != nil {
		return nil, err
	}

	log.Printf("Created user: %s (%s)", user.Name, user.ID)
	return user, nil
}
