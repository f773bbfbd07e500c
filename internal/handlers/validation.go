package handlers

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/anand-fs/plantrack/internal/models"
)

// RegisterValidators adds the lifecycle_status and user_role tags to gin's binding validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("lifecycle_status", validateStatus); err != nil {
		return err
	}
	if err := v.RegisterValidation("user_role", validateRole); err != nil {
		return err
	}
	return v.RegisterValidation("user_status", validateUserStatus)
}

func validateStatus(fl validator.FieldLevel) bool {
	return models.Status(fl.Field().String()).Valid()
}

func validateRole(fl validator.FieldLevel) bool {
	switch models.Role(fl.Field().String()) {
	case models.RoleEmployee, models.RoleManager, models.RoleAdmin:
		return true
	}
	return false
}

func validateUserStatus(fl validator.FieldLevel) bool {
	switch models.UserStatus(fl.Field().String()) {
	case models.UserStatusActive, models.UserStatusInactive:
		return true
	}
	return false
}
