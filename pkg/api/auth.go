package api

// User представляет профиль пользователя, возвращаемый сервером
type User struct {
	ID       string `json:"id"`               // UUID пользователя
	Username string `json:"username"`         // username
	Email    string `json:"email"`            // email пользователя
	Avatar   string `json:"avatar,omitempty"` // ссылка на аватар (опционально)
	Level    int    `json:"level"`            // текущий уровень
	TotalXP  int    `json:"total_xp"`         // суммарный опыт
	Streak   int    `json:"streak"`           // текущая серия дней
}

// LoginRequest представляет запрос на аутентификацию по паролю
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse представляет ответ с готовой сессией (профиль + токен)
type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"` // opaque bearer token
}

// RegisterRequest представляет запрос на регистрацию нового пользователя
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse представляет ответ на регистрацию.
// Сервер возвращает либо готовую сессию (User + Token), либо
// RequiresVerification=true — тогда клиент должен пройти email-верификацию.
// OTP заполняется только если сервер не смог доставить письмо (dev fallback).
type RegisterResponse struct {
	User                 *User  `json:"user,omitempty"`
	Token                string `json:"token,omitempty"`
	RequiresVerification bool   `json:"requires_verification,omitempty"`
	Email                string `json:"email,omitempty"`
	OTP                  string `json:"otp,omitempty"`
}

// SendVerificationRequest запрашивает отправку кода подтверждения на email
type SendVerificationRequest struct {
	Email string `json:"email"`
}

// VerifyEmailRequest представляет запрос на подтверждение email по коду
type VerifyEmailRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"` // ровно 6 цифр
}

// VerifyEmailResponse представляет ответ на подтверждение email.
// User и Token присутствуют, если сервер выполняет auto-login после верификации.
type VerifyEmailResponse struct {
	User    *User  `json:"user,omitempty"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

// ResendOTPRequest запрашивает повторную отправку кода
type ResendOTPRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordRequest начинает восстановление пароля
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// VerifyOTPRequest подтверждает код восстановления пароля
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// ResetPasswordRequest устанавливает новый пароль после подтверждения кода
type ResetPasswordRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// MessageResponse представляет ответ с информационным сообщением
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // пользовательское описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
