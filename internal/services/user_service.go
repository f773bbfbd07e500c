package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/anand-fs/plantrack/internal/audit"
	"github.com/anand-fs/plantrack/internal/cascade"
	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/repository"
	"github.com/anand-fs/plantrack/internal/utils"
)

// UserService handles user administration
type UserService struct {
	tx       cascade.Transactor
	users    repository.UserRepository
	recorder audit.Recorder
}

// NewUserService creates a new UserService
func NewUserService(d Deps) *UserService {
	return &UserService{
		tx:       d.Tx,
		users:    d.Users,
		recorder: d.Recorder,
	}
}

// UpdateUserInput represents the fields an admin may change
type UpdateUserInput struct {
	Name       *string
	Department *string
	Role       *models.Role
	Status     *models.UserStatus
}

func (s *UserService) ListUsers(ctx context.Context, params utils.PaginationParams) ([]models.User, int64, error) {
	users, total, err := s.users.List(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func (s *UserService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, ErrUserNotFound, "user")
	}
	return user, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id uint64, input UpdateUserInput, actor Actor) (*models.User, error) {
	if input.Role != nil {
		switch *input.Role {
		case models.RoleEmployee, models.RoleManager, models.RoleAdmin:
		default:
			return nil, ErrInvalidRole
		}
	}
	if input.Status != nil && *input.Status != models.UserStatusActive && *input.Status != models.UserStatusInactive {
		return nil, ErrInvalidUserStatus
	}

	var user *models.User
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.users.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, ErrUserNotFound, "user")
		}

		var changed []string
		if input.Name != nil && *input.Name != user.Name {
			user.Name = strings.TrimSpace(*input.Name)
			changed = append(changed, "name")
		}
		if input.Department != nil && *input.Department != user.Department {
			user.Department = strings.TrimSpace(*input.Department)
			changed = append(changed, "department")
		}
		if input.Role != nil && *input.Role != user.Role {
			changed = append(changed, fmt.Sprintf("role %s -> %s", user.Role, *input.Role))
			user.Role = *input.Role
		}
		if input.Status != nil && *input.Status != user.Status {
			changed = append(changed, fmt.Sprintf("status %s -> %s", user.Status, *input.Status))
			user.Status = *input.Status
		}
		if len(changed) == 0 {
			return nil
		}

		if err := s.users.Update(ctx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		_, err = s.recorder.Record(ctx, audit.Updated(models.EntityUser, user.ID, actor.Identity(),
			"User updated: "+strings.Join(changed, ", ")))
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id uint64, actor Actor) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		user, err := s.users.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, ErrUserNotFound, "user")
		}
		if err := s.users.Delete(ctx, user.ID); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		_, err = s.recorder.Record(ctx, audit.Deleted(models.EntityUser, user.ID, nil, actor.Identity(),
			fmt.Sprintf("User deleted: %s", user.Email)))
		return err
	})
}
