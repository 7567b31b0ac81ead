package model

import (
	"fmt"
	"time"
)

const xpPerLevel = 100

// LevelForXP is the only place a level is derived from experience points.
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/xpPerLevel + 1
}

func XPToNextLevel(xp int) int {
	return LevelForXP(xp)*xpPerLevel - xp
}

// ApplyXP returns a copy of the profile with delta added and the level recomputed.
func ApplyXP(profile UserProfile, delta int) (UserProfile, error) {
	if delta < 0 {
		return profile, fmt.Errorf("negative xp delta %d", delta)
	}
	profile.XP += delta
	profile.Level = LevelForXP(profile.XP)
	return profile, nil
}

// NextStreak computes the streak after activity at now. Days are compared as
// calendar days in now's location.
func NextStreak(current int, lastActivity *time.Time, now time.Time) int {
	if lastActivity == nil || current <= 0 {
		return 1
	}

	loc := now.Location()
	last := lastActivity.In(loc)
	lastDay := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch {
	case !today.After(lastDay):
		return current
	case today.AddDate(0, 0, -1).Equal(lastDay):
		return current + 1
	default:
		return 1
	}
}
