package util

import (
	"golang.org/x/crypto/bcrypt"
)

// HashPassword хэширует пароль через bcrypt. Хэшируется всегда исходный
// пароль - обфускация снимается до этого вызова.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword сравнивает пароль с хэшем за константное время
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
