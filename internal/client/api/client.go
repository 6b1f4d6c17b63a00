package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Maarij2004/code-tutor-authclient/pkg/api"
)

// DefaultTimeout — страховочный таймаут HTTP клиента.
// Контракты не требуют клиентского таймаута, но зависший запрос
// не должен навсегда блокировать поток.
const DefaultTimeout = 30 * time.Second

// RequestError represents a non-2xx server response.
// Message содержит пользовательский текст ошибки из тела ответа.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return e.Message
}

// AsRequestError распаковывает RequestError из цепочки ошибок
func AsRequestError(err error) (*RequestError, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr, true
	}
	return nil, false
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// Login выполняет аутентификацию по email и паролю
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/login", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register регистрирует нового пользователя
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
	var resp api.RegisterResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/register", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendVerification запрашивает отправку кода подтверждения email
func (c *Client) SendVerification(ctx context.Context, req api.SendVerificationRequest) (*api.MessageResponse, error) {
	var resp api.MessageResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/send-verification", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyEmail подтверждает email по коду
func (c *Client) VerifyEmail(ctx context.Context, req api.VerifyEmailRequest) (*api.VerifyEmailResponse, error) {
	var resp api.VerifyEmailResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/verify-email", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResendOTP запрашивает повторную отправку кода подтверждения
func (c *Client) ResendOTP(ctx context.Context, req api.ResendOTPRequest) (*api.MessageResponse, error) {
	var resp api.MessageResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/resend-otp", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ForgotPassword начинает восстановление пароля
func (c *Client) ForgotPassword(ctx context.Context, req api.ForgotPasswordRequest) (*api.MessageResponse, error) {
	var resp api.MessageResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/forgot-password", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyOTP подтверждает код восстановления пароля
func (c *Client) VerifyOTP(ctx context.Context, req api.VerifyOTPRequest) (*api.MessageResponse, error) {
	var resp api.MessageResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/verify-otp", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResetPassword устанавливает новый пароль
func (c *Client) ResetPassword(ctx context.Context, req api.ResetPasswordRequest) (*api.MessageResponse, error) {
	var resp api.MessageResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/reset-password", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetProfile загружает профиль текущего пользователя по bearer токену
func (c *Client) GetProfile(ctx context.Context, token string) (*api.User, error) {
	var resp api.User
	if err := c.doRequest(ctx, http.MethodGet, "/api/user/profile", token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result interface{}) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.errorFromResponse(resp.StatusCode, respBody)
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// errorFromResponse превращает non-2xx ответ в RequestError
// с пользовательским сообщением из тела
func (c *Client) errorFromResponse(statusCode int, body []byte) error {
	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		message := errResp.Error
		if message == "" {
			message = errResp.Message
		}
		if message != "" {
			return &RequestError{StatusCode: statusCode, Message: message}
		}
	}
	return &RequestError{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("request failed with status %d", statusCode),
	}
}
