package authflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	clientapi "github.com/Maarij2004/code-tutor-authclient/internal/client/api"
	"github.com/Maarij2004/code-tutor-authclient/internal/client/session"
	"github.com/Maarij2004/code-tutor-authclient/internal/client/storage"
	"github.com/Maarij2004/code-tutor-authclient/internal/client/timer"
	"github.com/Maarij2004/code-tutor-authclient/internal/validation"
	"github.com/Maarij2004/code-tutor-authclient/pkg/api"
)

// State описывает состояние машины аутентификации
type State int

const (
	// StateAnonymous — нет сессии
	StateAnonymous State = iota
	// StateAuthenticating — идёт операция входа/bootstrap
	StateAuthenticating
	// StatePendingVerification — регистрация ждёт подтверждения email
	StatePendingVerification
	// StateAuthenticated — сессия установлена
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StatePendingVerification:
		return "pending_verification"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Ошибки гейта повторной отправки кода. Возникают до сетевого вызова.
var (
	// ErrCooldownActive — cooldown ещё не истёк
	ErrCooldownActive = errors.New("please wait before requesting another code")
	// ErrSendInFlight — отправка кода уже идёт
	ErrSendInFlight = errors.New("a verification code is already being sent")
	// ErrNoVerification — нет активной верификации
	ErrNoVerification = errors.New("no verification in progress")
)

//go:generate moq -out api_mock.go . APIClient

// APIClient defines the server operations the controller depends on
type APIClient interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error)
	SendVerification(ctx context.Context, req api.SendVerificationRequest) (*api.MessageResponse, error)
	VerifyEmail(ctx context.Context, req api.VerifyEmailRequest) (*api.VerifyEmailResponse, error)
	ResendOTP(ctx context.Context, req api.ResendOTPRequest) (*api.MessageResponse, error)
	GetProfile(ctx context.Context, token string) (*api.User, error)
}

// StateEvent отправляется подписчикам при смене состояния машины
type StateEvent struct {
	State State
}

// bootstrapCall — разделяемый результат одного bootstrap.
// Конкурентные InitializeAuth ждут общий done вместо повторных запросов.
type bootstrapCall struct {
	done chan struct{}
	err  error
}

// Controller orchestrates the session store, the verification challenge and
// the server calls. It owns the Anonymous → Authenticating →
// {Authenticated | PendingVerification} state machine.
type Controller struct {
	mu        sync.Mutex
	api       APIClient
	session   *session.Store
	state     State
	challenge *challenge
	boot      *bootstrapCall

	cooldownSeconds int
	timerOpts       []timer.Option

	subMu sync.Mutex
	subs  map[uuid.UUID]chan StateEvent
}

// Option настраивает Controller
type Option func(*Controller)

// WithCooldownSeconds задает длительность cooldown (в тестах — меньше 60)
func WithCooldownSeconds(seconds int) Option {
	return func(c *Controller) {
		if seconds > 0 {
			c.cooldownSeconds = seconds
		}
	}
}

// WithTimerOptions пробрасывает настройки во все создаваемые таймеры
func WithTimerOptions(opts ...timer.Option) Option {
	return func(c *Controller) {
		c.timerOpts = opts
	}
}

// DefaultCooldownSeconds — минимальная пауза между отправками кода
const DefaultCooldownSeconds = 60

// New создает контроллер в состоянии Anonymous
func New(apiClient APIClient, sessionStore *session.Store, opts ...Option) *Controller {
	c := &Controller{
		api:             apiClient,
		session:         sessionStore,
		state:           StateAnonymous,
		cooldownSeconds: DefaultCooldownSeconds,
		subs:            make(map[uuid.UUID]chan StateEvent),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State возвращает текущее состояние машины
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Challenge возвращает копию активной верификации, если она есть
func (c *Controller) Challenge() (Challenge, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.challenge == nil {
		return Challenge{}, false
	}
	return c.challenge.view(), true
}

// Session возвращает хранилище сессии
func (c *Controller) Session() *session.Store {
	return c.session
}

// Subscribe регистрирует подписчика на смены состояния.
// Возвращает канал событий и функцию отписки.
func (c *Controller) Subscribe(buffer int) (<-chan StateEvent, func()) {
	if buffer < 1 {
		buffer = 1
	}

	id := uuid.New()
	ch := make(chan StateEvent, buffer)

	c.subMu.Lock()
	c.subs[id] = ch
	c.subMu.Unlock()

	unsubscribe := func() {
		c.subMu.Lock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
		c.subMu.Unlock()
	}

	return ch, unsubscribe
}

// setState переводит машину в новое состояние и уведомляет подписчиков
func (c *Controller) setState(state State) {
	c.mu.Lock()
	if c.state == state {
		c.mu.Unlock()
		return
	}
	c.state = state
	c.mu.Unlock()

	c.subMu.Lock()
	for _, ch := range c.subs {
		select {
		case ch <- StateEvent{State: state}:
		default:
		}
	}
	c.subMu.Unlock()
}

// Login выполняет вход по email и паролю. Валидация — до сетевого вызова.
// При ошибке сессия не меняется, машина остаётся в Anonymous.
// Контроллер не сериализует конкурентные вызовы Login — это забота
// вызывающей стороны (UI блокирует кнопку на время запроса).
func (c *Controller) Login(ctx context.Context, email, password string) error {
	if err := validation.ValidateLogin(email, password); err != nil {
		return err
	}

	c.setState(StateAuthenticating)

	resp, err := c.api.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		c.setState(StateAnonymous)
		return err
	}
	if resp.Token == "" || resp.User == nil {
		c.setState(StateAnonymous)
		return fmt.Errorf("server returned incomplete session")
	}

	// Сессия заменяется целиком, токен персистится
	if err := c.session.SetSession(ctx, resp.Token, resp.User); err != nil {
		c.setState(StateAnonymous)
		return err
	}

	c.setState(StateAuthenticated)
	return nil
}

// Register регистрирует нового пользователя. Сервер отвечает либо готовой
// сессией (прямой вход), либо требованием верификации email — тогда
// создается challenge и машина переходит в PendingVerification,
// не трогая сессию.
func (c *Controller) Register(ctx context.Context, in validation.RegistrationInput) error {
	if err := validation.ValidateRegistration(in); err != nil {
		return err
	}

	c.setState(StateAuthenticating)

	resp, err := c.api.Register(ctx, api.RegisterRequest{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		c.setState(StateAnonymous)
		return err
	}

	if resp.RequiresVerification {
		email := resp.Email
		if email == "" {
			email = in.Email
		}

		c.mu.Lock()
		if c.challenge != nil {
			c.challenge.destroy()
		}
		ch := newChallenge(email, resp.OTP, c.timerOpts...)
		// Сервер уже отправил код при регистрации — cooldown стартует сразу
		ch.cooldown.Start(c.cooldownSeconds)
		c.challenge = ch
		c.mu.Unlock()

		c.setState(StatePendingVerification)
		return nil
	}

	if resp.Token == "" || resp.User == nil {
		c.setState(StateAnonymous)
		return fmt.Errorf("server returned incomplete session")
	}

	if err := c.session.SetSession(ctx, resp.Token, resp.User); err != nil {
		c.setState(StateAnonymous)
		return err
	}

	c.setState(StateAuthenticated)
	return nil
}

// SendVerification запрашивает отправку кода подтверждения.
// Идемпотентна: если challenge для этого email ещё нет, он создается.
func (c *Controller) SendVerification(ctx context.Context, email string) error {
	return c.sendCode(ctx, email, false)
}

// ResendOTP повторно отправляет код в рамках активной верификации
func (c *Controller) ResendOTP(ctx context.Context, email string) error {
	return c.sendCode(ctx, email, true)
}

// sendCode — общий путь первичной и повторной отправки кода.
// Гейт: отправка отклоняется без сетевого вызова, пока cooldown > 0
// или предыдущая отправка ещё в полёте.
func (c *Controller) sendCode(ctx context.Context, email string, resend bool) error {
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}

	created := false

	c.mu.Lock()
	ch := c.challenge
	if ch == nil {
		if resend {
			c.mu.Unlock()
			return ErrNoVerification
		}
		ch = newChallenge(email, "", c.timerOpts...)
		c.challenge = ch
		created = true
	}
	if ch.isSending {
		c.mu.Unlock()
		return ErrSendInFlight
	}
	if ch.cooldown.Remaining() > 0 {
		c.mu.Unlock()
		return ErrCooldownActive
	}
	ch.isSending = true
	ch.sendSeq++
	seq := ch.sendSeq
	c.mu.Unlock()

	if created {
		c.setState(StatePendingVerification)
	}

	var err error
	if resend {
		_, err = c.api.ResendOTP(ctx, api.ResendOTPRequest{Email: email})
	} else {
		_, err = c.api.SendVerification(ctx, api.SendVerificationRequest{Email: email})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.challenge != ch || ch.sendSeq != seq {
		// Ответ устаревшей отправки: challenge сменился или отменён.
		// Состояние, произведённое более новым запросом, не перетирается.
		slog.Debug("stale send response ignored", "email", email)
		return nil
	}

	ch.isSending = false
	if err != nil {
		ch.lastError = userMessage(err)
		return err
	}

	ch.lastError = ""
	ch.cooldown.Start(c.cooldownSeconds)
	return nil
}

// VerifyEmail подтверждает email по коду. Код должен быть уже
// нормализован вызывающей стороной (validation.NormalizeOTP).
// Успех уничтожает challenge; если сервер вернул сессию, выполняется
// auto-login, иначе машина возвращается в Anonymous и требуется
// отдельный вход. Возвращаемое состояние говорит UI, куда вести
// пользователя.
func (c *Controller) VerifyEmail(ctx context.Context, email, otp string) (State, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return c.State(), err
	}
	if err := validation.ValidateOTP(otp); err != nil {
		return c.State(), err
	}

	c.mu.Lock()
	ch := c.challenge
	if ch == nil {
		c.mu.Unlock()
		return c.State(), ErrNoVerification
	}
	ch.verifySeq++
	seq := ch.verifySeq
	c.mu.Unlock()

	resp, err := c.api.VerifyEmail(ctx, api.VerifyEmailRequest{Email: email, OTP: otp})

	c.mu.Lock()
	if c.challenge != ch || ch.verifySeq != seq {
		// Устаревший ответ не перетирает состояние более нового запроса
		state := c.state
		c.mu.Unlock()
		slog.Debug("stale verify response ignored", "email", email)
		return state, nil
	}

	if err != nil {
		// Неудачная проверка не сбрасывает challenge; повторов нет
		ch.lastError = userMessage(err)
		c.mu.Unlock()
		return StatePendingVerification, err
	}

	ch.destroy()
	c.challenge = nil
	c.mu.Unlock()

	if resp.Token != "" && resp.User != nil {
		// auto-login после верификации
		if err := c.session.SetSession(ctx, resp.Token, resp.User); err != nil {
			c.setState(StateAnonymous)
			return StateAnonymous, err
		}
		c.setState(StateAuthenticated)
		return StateAuthenticated, nil
	}

	// Email подтверждён, но сессии нет — пользователь входит отдельно
	c.setState(StateAnonymous)
	return StateAnonymous, nil
}

// CancelVerification уничтожает активную верификацию (закрытие диалога).
// Таймер challenge останавливается — тиков после закрытия не бывает.
func (c *Controller) CancelVerification() {
	c.mu.Lock()
	if c.challenge != nil {
		c.challenge.destroy()
		c.challenge = nil
	}
	pending := c.state == StatePendingVerification
	c.mu.Unlock()

	if pending {
		c.setState(StateAnonymous)
	}
}

// InitializeAuth восстанавливает сессию из персистентного токена.
// Отсутствие токена — не ошибка: машина просто остаётся в Anonymous.
// Протухший токен удаляется молча (BootstrapError не показывается
// пользователю). Конкурентные вызовы разделяют один bootstrap.
func (c *Controller) InitializeAuth(ctx context.Context) error {
	c.mu.Lock()
	if c.boot != nil {
		b := c.boot
		c.mu.Unlock()
		<-b.done
		return b.err
	}
	b := &bootstrapCall{done: make(chan struct{})}
	c.boot = b
	c.mu.Unlock()

	b.err = c.bootstrap(ctx)

	c.mu.Lock()
	c.boot = nil
	c.mu.Unlock()
	close(b.done)

	return b.err
}

// bootstrap — один проход восстановления сессии
func (c *Controller) bootstrap(ctx context.Context) error {
	token, err := c.session.PersistedToken(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrTokenNotFound) {
			slog.Debug("failed to read persisted token", "error", err)
		}
		c.setState(StateAnonymous)
		return nil
	}

	// Окно "токен есть, профиль грузится" видно потребителям как
	// Authenticating, не как anonymous и не как authenticated
	c.setState(StateAuthenticating)
	c.session.BeginAuthenticating(token)

	user, err := c.api.GetProfile(ctx, token)
	if err != nil {
		// Ожидаемый случай: токен протух. Удаляем его и молча
		// возвращаемся в Anonymous, без ошибки для пользователя.
		slog.Debug("profile fetch failed, clearing persisted token", "error", err)
		if clearErr := c.session.Clear(ctx); clearErr != nil {
			slog.Warn("failed to clear session after bootstrap failure", "error", clearErr)
		}
		c.setState(StateAnonymous)
		return nil
	}

	if err := c.session.CompleteAuthenticating(user); err != nil {
		c.setState(StateAnonymous)
		return fmt.Errorf("failed to complete bootstrap: %w", err)
	}

	c.setState(StateAuthenticated)
	return nil
}

// Logout безусловно сбрасывает сессию и персистентный токен.
// Всегда успешен; серверный round-trip не требуется.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	if c.challenge != nil {
		c.challenge.destroy()
		c.challenge = nil
	}
	c.mu.Unlock()

	if err := c.session.Clear(ctx); err != nil {
		slog.Warn("failed to delete persisted token on logout", "error", err)
	}

	c.setState(StateAnonymous)
	return nil
}

// userMessage извлекает пользовательский текст ошибки
func userMessage(err error) string {
	if reqErr, ok := clientapi.AsRequestError(err); ok {
		return reqErr.Message
	}
	return err.Error()
}
