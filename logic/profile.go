package logic

import (
	"context"

	"github.com/alvarofc/supachat/dao"
	"github.com/alvarofc/supachat/models"
)

// ProfileLogic handles profile-related business logic
type ProfileLogic struct {
	profileDAO *dao.ProfileDAO
}

func NewProfileLogic(profileDAO *dao.ProfileDAO) *ProfileLogic {
	return &ProfileLogic{profileDAO: profileDAO}
}

// GetProfile retrieves a user's profile with daily usage counters.
func (l *ProfileLogic) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return l.profileDAO.GetProfile(ctx, userID)
}
