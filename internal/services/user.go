package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/greyfundr/back-end/internal/store"
	"github.com/greyfundr/back-end/types"
)

// UserService encapsulates user administration use-cases outside the
// auth core.
type UserService struct {
	repo  UserRepository
	lists UserLister
}

// UserLister extends the repository contract with listing and removal,
// used only by the users module.
type UserLister interface {
	List(ctx context.Context, filter store.UserFilter) ([]types.User, error)
	Delete(ctx context.Context, id string) error
}

func NewUserService(repo UserRepository, lists UserLister) *UserService {
	return &UserService{repo: repo, lists: lists}
}

func (s *UserService) List(ctx context.Context, filter store.UserFilter) ([]types.User, error) {
	users, err := s.lists.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	for i := range users {
		users[i] = users[i].Sanitized()
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id string) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, fmt.Errorf("find user: %w", err)
	}
	return user.Sanitized(), nil
}

// UpdateProfileRequest carries the mutable profile fields. Nil means
// "leave unchanged".
type UpdateProfileRequest struct {
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	PhoneNumber    *string `json:"phone_number"`
	ProfilePicture *string `json:"profile_picture"`
	IsActive       *bool   `json:"is_active"`
	Role           *string `json:"role"`
}

// Update applies a partial profile update. Only admins may change role
// or activation state; the handler enforces that before calling.
func (s *UserService) Update(ctx context.Context, id string, req UpdateProfileRequest) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, fmt.Errorf("find user: %w", err)
	}

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = *req.PhoneNumber
	}
	if req.ProfilePicture != nil {
		user.ProfilePicture = *req.ProfilePicture
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.Role != nil {
		switch *req.Role {
		case types.RoleUser, types.RoleAdmin, types.RoleModerator:
			user.Role = *req.Role
		default:
			return types.User{}, fmt.Errorf("unknown role %q: %w", *req.Role, ErrBadRequest)
		}
	}

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, fmt.Errorf("update user: %w", err)
	}
	return updated.Sanitized(), nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.lists.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
