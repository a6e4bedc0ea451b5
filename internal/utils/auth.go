package utils

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pathbyte/pathbyte-backend/internal/types"
)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizeUserFields(user *types.User) {
	if user == nil {
		return
	}
	user.Email = NormalizeEmail(user.Email)
	user.FirstName = strings.TrimSpace(user.FirstName)
	user.LastName = strings.TrimSpace(user.LastName)
}

func ValidateRegistration(user *types.User) error {
	if user == nil {
		return fmt.Errorf("user required")
	}
	if user.Email == "" || !strings.Contains(user.Email, "@") {
		return fmt.Errorf("valid email required")
	}
	if len(user.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if user.FirstName == "" || user.LastName == "" {
		return fmt.Errorf("first_name and last_name required")
	}
	return nil
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
