package services

import (
	"context"
	"fmt"
	"os"
	"time"

	appcontext "github.com/alphabatem/common/context"
	"github.com/learnproof/learnproof-api/dto"
	"github.com/learnproof/learnproof-api/model"
	"github.com/learnproof/learnproof-api/services/repositories"
	"github.com/learnproof/learnproof-api/shared"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const dayLayout = "2006-01-02"

// ActivityService appends to the activity log and summarises it per calendar day.
type ActivityService struct {
	appcontext.DefaultService

	activity *repositories.ActivityRepository
	users    *repositories.UserRepository
	loc      *time.Location
	now      func() time.Time
}

const ACTIVITY_SVC = "activity_svc"

func (svc ActivityService) Id() string {
	return ACTIVITY_SVC
}

func (svc *ActivityService) Configure(ctx *appcontext.Context) error {
	loc, err := activityLocation(os.Getenv("ACTIVITY_TIMEZONE"))
	if err != nil {
		return err
	}
	svc.loc = loc
	return svc.DefaultService.Configure(ctx)
}

// activityLocation resolves the zone used for day boundaries. Unset means UTC.
func activityLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid ACTIVITY_TIMEZONE %q: %w", tz, err)
	}
	return loc, nil
}

func (svc *ActivityService) Start() error {
	svc.setup(svc.Service(DATABASE_SVC).(*DatabaseService).Db(), svc.loc, time.Now)
	return nil
}

func (svc *ActivityService) setup(db *gorm.DB, loc *time.Location, now func() time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	svc.activity = repositories.NewActivityRepository(db)
	svc.users = repositories.NewUserRepository(db)
	svc.loc = loc
	svc.now = now
}

// Record appends an entry inside tx and advances the user's streak. A failure
// here rolls back the caller's transaction.
func (svc *ActivityService) Record(ctx context.Context, tx *gorm.DB, userID, activityType string, details map[string]interface{}) error {
	now := svc.now()

	entry := &model.UserActivityLog{
		UserID:       userID,
		ActivityType: activityType,
		Timestamp:    now.UTC(),
	}
	if len(details) > 0 {
		raw, err := shared.JSONMarshal(details)
		if err != nil {
			return fmt.Errorf("marshal activity details: %w", err)
		}
		entry.Details = datatypes.JSON(raw)
	}

	if err := svc.activity.Create(ctx, tx, entry); err != nil {
		return err
	}
	if err := svc.users.TouchActivity(ctx, tx, userID, now.In(svc.loc)); err != nil {
		return err
	}

	activityRecordedTotal.WithLabelValues(activityType).Inc()
	return nil
}

// Graph returns one entry per calendar day for the last days days, oldest
// first and ending today.
func (svc *ActivityService) Graph(ctx context.Context, userID string, days int) ([]dto.ActivityDay, error) {
	if days <= 0 {
		days = shared.DefaultActivityDays
	}
	if days > shared.MaxActivityDays {
		days = shared.MaxActivityDays
	}

	now := svc.now().In(svc.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, svc.loc)
	start := today.AddDate(0, 0, -(days - 1))
	end := today.AddDate(0, 0, 1)

	timestamps, err := svc.activity.ListTimestamps(ctx, userID, start.UTC(), end.UTC())
	if err != nil {
		return nil, handleDBError(err)
	}

	counts := make(map[string]int, days)
	for _, ts := range timestamps {
		counts[ts.In(svc.loc).Format(dayLayout)]++
	}

	graph := make([]dto.ActivityDay, 0, days)
	for d := 0; d < days; d++ {
		day := start.AddDate(0, 0, d).Format(dayLayout)
		graph = append(graph, dto.ActivityDay{Date: day, ActivityCount: counts[day]})
	}
	return graph, nil
}
