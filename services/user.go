package services

import (
	"context"
	"errors"
	"strings"

	appcontext "github.com/alphabatem/common/context"
	"github.com/learnproof/learnproof-api/dto"
	"github.com/learnproof/learnproof-api/model"
	"github.com/learnproof/learnproof-api/services/repositories"
	"github.com/learnproof/learnproof-api/shared"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UserService is the user directory: one profile per identity-provider subject.
type UserService struct {
	appcontext.DefaultService

	db    *gorm.DB
	users *repositories.UserRepository
}

const USER_SVC = "user_svc"

func (svc UserService) Id() string {
	return USER_SVC
}

func (svc *UserService) Start() error {
	svc.setup(svc.Service(DATABASE_SVC).(*DatabaseService).Db())
	return nil
}

func (svc *UserService) setup(db *gorm.DB) {
	svc.db = db
	svc.users = repositories.NewUserRepository(db)
}

// ResolveOrCreate returns the profile for the identity, creating it on first
// sight. Profile fields from the first creation win; later identity claims do
// not overwrite them.
func (svc *UserService) ResolveOrCreate(ctx context.Context, identity dto.Identity) (*model.UserProfile, error) {
	if identity.Subject == "" {
		return nil, shared.NewUnauthorizedError(nil, "Identity has no subject")
	}

	user, err := svc.users.GetByUID(ctx, nil, identity.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, handleDBError(err)
	}

	user = &model.UserProfile{
		UID:        identity.Subject,
		Name:       identity.Name,
		ProfilePic: identity.Picture,
		XP:         0,
		Level:      1,
	}
	if email := strings.TrimSpace(identity.Email); email != "" {
		user.Email = &email
	}

	err = svc.users.Create(ctx, nil, user)
	if err == nil {
		log.WithFields(log.Fields{"user_id": user.ID, "uid": user.UID}).Info("Created user profile")
		userSignupsTotal.Inc()
		return user, nil
	}
	if !isDuplicateKey(err) {
		return nil, handleDBError(err)
	}

	// Lost a race with a concurrent first login, or the email belongs to someone else.
	existing, readErr := svc.users.GetByUID(ctx, nil, identity.Subject)
	if readErr == nil {
		return existing, nil
	}
	if errors.Is(readErr, gorm.ErrRecordNotFound) {
		log.WithField("uid", identity.Subject).Warn("Email already registered to another subject")
		return nil, shared.NewConflictError(err, "Email is already registered to another account")
	}
	return nil, handleDBError(readErr)
}

func (svc *UserService) GetProfile(ctx context.Context, userID string) (*dto.UserProfileResponse, error) {
	user, err := svc.users.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, handleDBError(err)
	}
	resp := toProfileResponse(user)
	return &resp, nil
}

// Leaderboard ranks users by XP. The caller's own entry is included even when
// they fall outside the top limit.
func (svc *UserService) Leaderboard(ctx context.Context, userID string, limit int) (*dto.LeaderboardResponse, error) {
	if limit <= 0 {
		limit = shared.DefaultLeaderboardSize
	}
	if limit > shared.MaxLeaderboardSize {
		limit = shared.MaxLeaderboardSize
	}

	top, err := svc.users.TopByXP(ctx, nil, limit)
	if err != nil {
		return nil, handleDBError(err)
	}

	resp := &dto.LeaderboardResponse{Entries: make([]dto.LeaderboardEntry, 0, len(top))}
	for i := range top {
		entry := toLeaderboardEntry(&top[i], i+1)
		resp.Entries = append(resp.Entries, entry)
		if top[i].ID == userID {
			resp.CurrentUser = &entry
		}
	}

	if resp.CurrentUser == nil && userID != "" {
		user, err := svc.users.GetByID(ctx, nil, userID)
		if err != nil {
			return nil, handleDBError(err)
		}
		rank, err := svc.users.RankOf(ctx, nil, user)
		if err != nil {
			return nil, handleDBError(err)
		}
		entry := toLeaderboardEntry(user, rank)
		resp.CurrentUser = &entry
	}

	return resp, nil
}

func toLeaderboardEntry(user *model.UserProfile, rank int) dto.LeaderboardEntry {
	return dto.LeaderboardEntry{
		Rank:       rank,
		UserID:     user.ID,
		Name:       user.Name,
		ProfilePic: user.ProfilePic,
		XP:         user.XP,
		Level:      user.Level,
	}
}

func toProfileResponse(user *model.UserProfile) dto.UserProfileResponse {
	resp := dto.UserProfileResponse{
		ID:            user.ID,
		UID:           user.UID,
		Name:          user.Name,
		ProfilePic:    user.ProfilePic,
		XP:            user.XP,
		Level:         user.Level,
		XPToNextLevel: model.XPToNextLevel(user.XP),
		StreakCount:   user.StreakCount,
		JoinedAt:      user.CreatedAt,
	}
	if user.Email != nil {
		resp.Email = *user.Email
	}
	return resp
}
