package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"

	"github.com/Maarij2004/code-tutor-authclient/internal/client/authflow"
	"github.com/Maarij2004/code-tutor-authclient/internal/client/storage"
)

// DefaultDestination — куда вести пользователя после успешного входа,
// если redirect не задан
const DefaultDestination = "/"

// LoginEntry — точка входа анонимного состояния
const LoginEntry = "/login"

//go:generate moq -out bootstrapper_mock.go . Bootstrapper

// Bootstrapper defines the controller surface the callback handler needs
type Bootstrapper interface {
	InitializeAuth(ctx context.Context) error
	State() authflow.State
}

// Outcome — результат обработки redirect: куда вести пользователя
type Outcome struct {
	Authenticated bool
	Destination   string
}

// CallbackHandler reconciles a redirect-delivered OAuth token with the
// session. One-shot: обрабатывает ровно одно приземление redirect.
// Либо сессия становится Authenticated и навигация идёт к запрошенной
// цели, либо токен вычищен и пользователь возвращается на вход.
type CallbackHandler struct {
	storage storage.TokenStorage
	auth    Bootstrapper
	handled atomic.Bool
}

// NewCallbackHandler создает обработчик OAuth redirect
func NewCallbackHandler(tokenStorage storage.TokenStorage, auth Bootstrapper) *CallbackHandler {
	return &CallbackHandler{
		storage: tokenStorage,
		auth:    auth,
	}
}

// Handle обрабатывает query-параметры redirect (`?token=&redirect=&error=`).
// Ошибка или отсутствие токена — анонимный исход без единого обращения к
// storage. Токен сначала персистится, затем запускается bootstrap; если
// тот не дал сессию, только что сохранённый токен откатывается — иначе
// мёртвый токен молча ломал бы каждый последующий запуск.
func (h *CallbackHandler) Handle(ctx context.Context, query url.Values) (Outcome, error) {
	if !h.handled.CompareAndSwap(false, true) {
		return Outcome{Destination: LoginEntry}, fmt.Errorf("oauth callback already handled")
	}

	if errParam := query.Get("error"); errParam != "" {
		slog.Debug("oauth callback returned error", "error", errParam)
		return Outcome{Destination: LoginEntry}, nil
	}

	token := query.Get("token")
	if token == "" {
		slog.Debug("oauth callback without token")
		return Outcome{Destination: LoginEntry}, nil
	}

	if err := h.storage.SaveToken(ctx, token); err != nil {
		return Outcome{Destination: LoginEntry}, fmt.Errorf("failed to persist oauth token: %w", err)
	}

	if err := h.auth.InitializeAuth(ctx); err != nil {
		h.rollback(ctx)
		return Outcome{Destination: LoginEntry}, fmt.Errorf("bootstrap after oauth callback failed: %w", err)
	}

	// Bootstrap с невалидным токеном молча демотирует в Anonymous —
	// проверяем фактический исход, а не только ошибку
	if h.auth.State() != authflow.StateAuthenticated {
		h.rollback(ctx)
		return Outcome{Destination: LoginEntry}, nil
	}

	destination := query.Get("redirect")
	if destination == "" {
		destination = DefaultDestination
	}

	return Outcome{Authenticated: true, Destination: destination}, nil
}

// rollback вычищает только что сохранённый токен
func (h *CallbackHandler) rollback(ctx context.Context) {
	if err := h.storage.DeleteToken(ctx); err != nil {
		slog.Warn("failed to roll back oauth token", "error", err)
	}
}
