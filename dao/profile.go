package dao

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alvarofc/supachat/models"
)

// ProfileDAO handles profile-related database operations
type ProfileDAO struct {
	db *gorm.DB
}

func NewProfileDAO(db *gorm.DB) *ProfileDAO {
	return &ProfileDAO{db: db}
}

// GetProfile retrieves a user's profile. A missing profile returns a default
// row (signup should have created it; tolerate its absence the way the
// reference client does).
func (d *ProfileDAO) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := d.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.Profile{UserID: userID, DailyMessageLimit: 10}, nil
		}
		return nil, err
	}
	return &profile, nil
}

// GetUsage returns the daily limit, count, and last-sent date for a user.
// It satisfies the quota tracker's profile source.
func (d *ProfileDAO) GetUsage(ctx context.Context, userID string) (limit, count int, lastSentDate string, err error) {
	profile, err := d.GetProfile(ctx, userID)
	if err != nil {
		return 0, 0, "", err
	}
	return profile.DailyMessageLimit, profile.DailyMessageCount, profile.LastMessageSentAt, nil
}

// UpdateUsage sets the daily message count and last-sent date for a user,
// creating the profile row when it does not exist yet.
func (d *ProfileDAO) UpdateUsage(ctx context.Context, userID string, count int, date string) error {
	profile := models.Profile{
		UserID:            userID,
		DailyMessageLimit: 10,
		DailyMessageCount: count,
		LastMessageSentAt: date,
	}
	return d.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"daily_message_count", "last_message_sent_at"}),
		}).
		Create(&profile).Error
}
