package service

import (
	"context"
	"errors"
	"strings"

	"ecofinds/internal/models"
	"ecofinds/internal/store"
	"ecofinds/internal/util"
)

type UserService struct {
	users UserRepository
}

func NewUserService(users UserRepository) *UserService {
	return &UserService{users: users}
}

// UpdateProfileRequest is a partial update; nil fields are left untouched.
type UpdateProfileRequest struct {
	Name      *string `json:"name"`
	Bio       *string `json:"bio"`
	Location  *string `json:"location"`
	AvatarURL *string `json:"avatar_url" binding:"omitempty,url"`
}

func (s *UserService) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	ctx, span := util.StartSpan(ctx, "UserService.GetProfile")
	defer span.End()

	profile, err := s.users.GetProfile(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}
	return profile, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*models.Profile, error) {
	ctx, span := util.StartSpan(ctx, "UserService.UpdateProfile")
	defer span.End()

	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, validationError("name cannot be empty")
		}
		user.Name = name
	}
	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.Location != nil {
		user.Location = strings.TrimSpace(*req.Location)
	}
	if req.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*req.AvatarURL)
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		util.FailSpan(span, err)
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}
