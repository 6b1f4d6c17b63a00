package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// UsernamePattern определяет допустимый формат username
// Только латинские буквы (a-z, A-Z), цифры (0-9), нижнее подчеркивание (_)
// Длина: 3-32 символа
var UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

// emailPattern — грубая проверка формы адреса, окончательную валидацию
// выполняет сервер при отправке письма
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const (
	// MinUsernameLen минимальная длина username
	MinUsernameLen = 3
	// MaxUsernameLen максимальная длина username
	MaxUsernameLen = 32
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 8
	// OTPLength длина кода подтверждения
	OTPLength = 6
)

// ValidateUsername проверяет, что username соответствует требованиям
// Формат: только латинские буквы (a-z, A-Z), цифры (0-9), нижнее подчеркивание (_)
// Длина: 3-32 символа
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	if len(username) < MinUsernameLen {
		return fmt.Errorf("username must be at least %d characters long", MinUsernameLen)
	}

	if len(username) > MaxUsernameLen {
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLen)
	}

	if !UsernamePattern.MatchString(username) {
		return fmt.Errorf("username can only contain letters (a-z, A-Z), numbers (0-9), and underscores (_)")
	}

	return nil
}

// ValidateEmail проверяет, что строка похожа на email адрес
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}

	if !emailPattern.MatchString(email) {
		return fmt.Errorf("invalid email address")
	}

	return nil
}

// ValidatePassword проверяет минимальные требования к паролю
// Минимум 8 символов
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if len(password) < MinPasswordLen {
		return fmt.Errorf("Password must be at least %d characters long", MinPasswordLen)
	}

	return nil
}

// ValidatePasswordConfirm проверяет пароль и его подтверждение
func ValidatePasswordConfirm(password, confirm string) error {
	if password == "" || confirm == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if password != confirm {
		return fmt.Errorf("Passwords do not match")
	}

	return ValidatePassword(password)
}

// ValidateOTP проверяет, что код состоит ровно из 6 цифр.
// Нормализацию ввода (NormalizeOTP) вызывающая сторона выполняет заранее.
func ValidateOTP(otp string) error {
	if otp == "" {
		return fmt.Errorf("verification code cannot be empty")
	}

	if len(otp) != OTPLength {
		return fmt.Errorf("verification code must be %d digits", OTPLength)
	}

	for _, r := range otp {
		if r < '0' || r > '9' {
			return fmt.Errorf("verification code must contain only digits")
		}
	}

	return nil
}

// NormalizeOTP убирает из ввода всё, кроме цифр (пробелы, дефисы и т.п.)
func NormalizeOTP(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RegistrationInput содержит поля формы регистрации
type RegistrationInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	AcceptedTerms   bool
}

// ValidateRegistration проверяет форму регистрации целиком.
// Регистрация — единственная точка входа с обязательным принятием
// пользовательского соглашения; у логина такого требования нет.
func ValidateRegistration(in RegistrationInput) error {
	if in.Username == "" || in.Email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return fmt.Errorf("All fields are required")
	}

	if err := ValidateUsername(in.Username); err != nil {
		return err
	}

	if err := ValidateEmail(in.Email); err != nil {
		return err
	}

	if in.Password != in.ConfirmPassword {
		return fmt.Errorf("Passwords do not match")
	}

	if err := ValidatePassword(in.Password); err != nil {
		return err
	}

	if !in.AcceptedTerms {
		return fmt.Errorf("You must accept the terms and conditions")
	}

	return nil
}

// ValidateLogin проверяет форму логина: оба поля обязательны
func ValidateLogin(email, password string) error {
	if email == "" || password == "" {
		return fmt.Errorf("Email and password are required")
	}

	return ValidateEmail(email)
}
