package seeders

import (
	"context"
	"errors"
	"log"

	"github.com/learnproof/learnproof-api/model"
	"github.com/learnproof/learnproof-api/services"
	"github.com/learnproof/learnproof-api/services/repositories"
	"gorm.io/gorm"
)

type ContentSeeder struct {
	db      *gorm.DB
	content *repositories.ContentRepository
}

func NewContentSeeder(db *gorm.DB) *ContentSeeder {
	return &ContentSeeder{
		db:      db,
		content: repositories.NewContentRepository(db),
	}
}

type seedVideo struct {
	externalID  string
	name        string
	description string
	duration    string
}

var demoPlaylist = struct {
	externalID  string
	name        string
	description string
	videos      []seedVideo
}{
	externalID:  "PLdemoGoBasics000000000000000000",
	name:        "Go Basics",
	description: "A short introduction to the Go programming language.",
	videos: []seedVideo{
		{"dGoTour00001", "Tour of Go", "Packages, variables and functions in Go.", "PT12M5S"},
		{"dGoSlices002", "Slices and Maps", "How slices grow and how maps are used.", "PT18M40S"},
		{"dGoChans0003", "Channels", "Goroutines communicate over channels.", "PT21M"},
	},
}

var demoStandalone = []seedVideo{
	{"dTesting0004", "Table Driven Tests", "Writing table driven tests with the testing package.", "PT9M30S"},
	{"dContext0005", "Context Cancellation", "Cancelling work with context.Context.", "PT1H2M"},
}

// SeedLibrary imports one playlist and a few standalone videos for userID.
// Items the user already owns are left untouched.
func (s *ContentSeeder) SeedLibrary(ctx context.Context, userID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.seedPlaylist(ctx, tx, userID); err != nil {
			return err
		}
		for _, v := range demoStandalone {
			if err := s.seedStandalone(ctx, tx, userID, v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *ContentSeeder) seedPlaylist(ctx context.Context, tx *gorm.DB, userID string) error {
	_, err := s.content.GetPlaylist(ctx, tx, userID, demoPlaylist.externalID)
	if err == nil {
		log.Printf("Playlist %s already exists, skipping", demoPlaylist.name)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	playlist := &model.Playlist{
		UserID:      userID,
		ExternalID:  demoPlaylist.externalID,
		Name:        demoPlaylist.name,
		Description: demoPlaylist.description,
		URL:         "https://www.youtube.com/playlist?list=" + demoPlaylist.externalID,
	}
	if err := s.content.CreatePlaylist(ctx, tx, playlist); err != nil {
		return err
	}

	videos := make([]model.Video, 0, len(demoPlaylist.videos))
	for i, v := range demoPlaylist.videos {
		position := i + 1
		videos = append(videos, model.Video{
			UserID:      userID,
			ExternalID:  v.externalID,
			Name:        v.name,
			URL:         services.VideoURL(v.externalID),
			Description: v.description,
			Duration:    services.FormatISODuration(v.duration),
			PlaylistID:  &playlist.ID,
			Position:    &position,
		})
	}
	if err := s.content.UpsertPlaylistVideos(ctx, tx, videos); err != nil {
		return err
	}

	log.Printf("Created playlist: %s with %d videos", playlist.Name, len(videos))
	return nil
}

func (s *ContentSeeder) seedStandalone(ctx context.Context, tx *gorm.DB, userID string, v seedVideo) error {
	_, err := s.content.GetVideo(ctx, tx, userID, v.externalID)
	if err == nil {
		log.Printf("Video %s already exists, skipping", v.name)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	video := &model.Video{
		UserID:      userID,
		ExternalID:  v.externalID,
		Name:        v.name,
		URL:         services.VideoURL(v.externalID),
		Description: v.description,
		Duration:    services.FormatISODuration(v.duration),
	}
	if err := s.content.CreateVideo(ctx, tx, video); err != nil {
		return err
	}

	log.Printf("Created video: %s", video.Name)
	return nil
}
