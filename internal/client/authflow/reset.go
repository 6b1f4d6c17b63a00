package authflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Maarij2004/code-tutor-authclient/internal/client/timer"
	"github.com/Maarij2004/code-tutor-authclient/internal/validation"
	"github.com/Maarij2004/code-tutor-authclient/pkg/api"
)

// ResetPhase — фаза восстановления пароля. Фазы строго линейны и
// двигаются только вперёд; любая неудача оставляет текущую фазу.
type ResetPhase int

const (
	// PhaseRequesting — email введён, код ещё не запрошен
	PhaseRequesting ResetPhase = iota
	// PhaseAwaitingOtp — код отправлен, ждём ввода
	PhaseAwaitingOtp
	// PhaseOtpVerified — код подтверждён, ждём новый пароль
	PhaseOtpVerified
	// PhaseClosed — поток завершён или отменён
	PhaseClosed
)

func (p ResetPhase) String() string {
	switch p {
	case PhaseAwaitingOtp:
		return "awaiting_otp"
	case PhaseOtpVerified:
		return "otp_verified"
	case PhaseClosed:
		return "closed"
	default:
		return "requesting"
	}
}

//go:generate moq -out reset_api_mock.go . ResetAPIClient

// ResetAPIClient defines the server operations the reset flow depends on
type ResetAPIClient interface {
	ForgotPassword(ctx context.Context, req api.ForgotPasswordRequest) (*api.MessageResponse, error)
	VerifyOTP(ctx context.Context, req api.VerifyOTPRequest) (*api.MessageResponse, error)
	ResendOTP(ctx context.Context, req api.ResendOTPRequest) (*api.MessageResponse, error)
	ResetPassword(ctx context.Context, req api.ResetPasswordRequest) (*api.MessageResponse, error)
}

// DefaultCloseDelay — пауза перед автозакрытием после успешного сброса,
// чтобы UI успел показать подтверждение. Это контракт UX, не сетевое
// ожидание.
const DefaultCloseDelay = 2 * time.Second

// ResetFlow — трёхфазный под-автомат восстановления пароля:
// Requesting → AwaitingOtp → OtpVerified → (закрыт). Использует те же
// OTP-примитивы, что и верификация при регистрации, но работает полностью
// независимо, включая собственный cooldown-таймер.
type ResetFlow struct {
	mu        sync.Mutex
	api       ResetAPIClient
	id        uuid.UUID
	phase     ResetPhase
	email     string
	otp       string // подтверждённый код, уходит в reset-password не повторно
	lastError string
	isSending bool
	cooldown  *timer.Cooldown
	verifySeq uint64 // sequence tag проверок кода
	sendSeq   uint64 // sequence tag отправок кода

	cooldownSeconds int
	closeDelay      time.Duration
	closeTimer      *time.Timer
	onClose         func()
}

// ResetOption настраивает ResetFlow
type ResetOption func(*ResetFlow)

// WithResetCooldownSeconds задает длительность cooldown
func WithResetCooldownSeconds(seconds int) ResetOption {
	return func(f *ResetFlow) {
		if seconds > 0 {
			f.cooldownSeconds = seconds
		}
	}
}

// WithResetTimerOptions пробрасывает настройки в cooldown-таймер
func WithResetTimerOptions(opts ...timer.Option) ResetOption {
	return func(f *ResetFlow) {
		f.cooldown = timer.New(opts...)
	}
}

// WithCloseDelay задает паузу автозакрытия после успешного сброса
func WithCloseDelay(delay time.Duration) ResetOption {
	return func(f *ResetFlow) {
		if delay >= 0 {
			f.closeDelay = delay
		}
	}
}

// WithOnClose задает обработчик закрытия потока (UI убирает диалог)
func WithOnClose(fn func()) ResetOption {
	return func(f *ResetFlow) {
		f.onClose = fn
	}
}

// NewResetFlow создает поток восстановления для указанного email
func NewResetFlow(apiClient ResetAPIClient, email string, opts ...ResetOption) (*ResetFlow, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}

	f := &ResetFlow{
		api:             apiClient,
		id:              uuid.New(),
		phase:           PhaseRequesting,
		email:           email,
		cooldown:        timer.New(),
		cooldownSeconds: DefaultCooldownSeconds,
		closeDelay:      DefaultCloseDelay,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Phase возвращает текущую фазу
func (f *ResetFlow) Phase() ResetPhase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Email возвращает email потока
func (f *ResetFlow) Email() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.email
}

// LastError возвращает текст последней ошибки ("" — ошибок нет)
func (f *ResetFlow) LastError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastError
}

// CooldownRemaining возвращает оставшиеся секунды cooldown
func (f *ResetFlow) CooldownRemaining() int {
	return f.cooldown.Remaining()
}

// ResendAllowed сообщает, доступна ли повторная отправка кода:
// фаза AwaitingOtp, cooldown на нуле и отправка не идёт
func (f *ResetFlow) ResendAllowed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase == PhaseAwaitingOtp && !f.isSending && f.cooldown.Remaining() == 0
}

// RequestReset запрашивает код восстановления.
// Requesting → AwaitingOtp при успехе; неудача оставляет Requesting.
func (f *ResetFlow) RequestReset(ctx context.Context) error {
	f.mu.Lock()
	if f.phase != PhaseRequesting {
		f.mu.Unlock()
		return fmt.Errorf("reset already in progress")
	}
	if f.isSending {
		f.mu.Unlock()
		return ErrSendInFlight
	}
	f.isSending = true
	f.sendSeq++
	seq := f.sendSeq
	email := f.email
	f.mu.Unlock()

	_, err := f.api.ForgotPassword(ctx, api.ForgotPasswordRequest{Email: email})

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendSeq != seq || f.phase == PhaseClosed {
		slog.Debug("stale forgot-password response ignored", "email", email)
		return nil
	}

	f.isSending = false
	if err != nil {
		f.lastError = userMessage(err)
		return err
	}

	f.lastError = ""
	f.phase = PhaseAwaitingOtp
	f.cooldown.Start(f.cooldownSeconds)
	return nil
}

// VerifyOTP подтверждает код восстановления.
// AwaitingOtp → OtpVerified при успехе; неудача оставляет AwaitingOtp и
// не трогает cooldown (попытка resend не расходуется). Ответ обогнанного
// запроса игнорируется: перезаписывает состояние только самый свежий.
func (f *ResetFlow) VerifyOTP(ctx context.Context, otp string) error {
	if err := validation.ValidateOTP(otp); err != nil {
		return err
	}

	f.mu.Lock()
	if f.phase != PhaseAwaitingOtp {
		f.mu.Unlock()
		return fmt.Errorf("no code is awaited")
	}
	f.verifySeq++
	seq := f.verifySeq
	email := f.email
	f.mu.Unlock()

	_, err := f.api.VerifyOTP(ctx, api.VerifyOTPRequest{Email: email, OTP: otp})

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.verifySeq != seq || f.phase != PhaseAwaitingOtp {
		// Поздний ответ уже подтверждённого (или закрытого) потока:
		// фаза не откатывается, состояние не перетирается
		slog.Debug("stale verify-otp response ignored", "email", email)
		return nil
	}

	if err != nil {
		f.lastError = userMessage(err)
		return err
	}

	f.lastError = ""
	f.otp = otp
	f.phase = PhaseOtpVerified
	return nil
}

// ResendOTP повторно отправляет код восстановления. Доступен только в
// AwaitingOtp; гейтится собственным cooldown потока, независимым от
// таймера верификации при регистрации.
func (f *ResetFlow) ResendOTP(ctx context.Context) error {
	f.mu.Lock()
	if f.phase != PhaseAwaitingOtp {
		f.mu.Unlock()
		return fmt.Errorf("no code is awaited")
	}
	if f.isSending {
		f.mu.Unlock()
		return ErrSendInFlight
	}
	if f.cooldown.Remaining() > 0 {
		f.mu.Unlock()
		return ErrCooldownActive
	}
	f.isSending = true
	f.sendSeq++
	seq := f.sendSeq
	email := f.email
	f.mu.Unlock()

	_, err := f.api.ResendOTP(ctx, api.ResendOTPRequest{Email: email})

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendSeq != seq || f.phase != PhaseAwaitingOtp {
		// Только самый свежий успешный resend перезапускает cooldown
		slog.Debug("stale resend response ignored", "email", email)
		return nil
	}

	f.isSending = false
	if err != nil {
		f.lastError = userMessage(err)
		return err
	}

	f.lastError = ""
	f.cooldown.Start(f.cooldownSeconds)
	return nil
}

// ResetPassword устанавливает новый пароль. Требования: оба поля
// непустые, значения равны, длина ≥ 8 — всё проверяется до сетевого
// вызова. Успех завершает поток: после closeDelay он закрывается сам,
// чтобы UI успел показать подтверждение.
func (f *ResetFlow) ResetPassword(ctx context.Context, newPassword, confirmPassword string) error {
	if err := validation.ValidatePasswordConfirm(newPassword, confirmPassword); err != nil {
		return err
	}

	f.mu.Lock()
	if f.phase != PhaseOtpVerified {
		f.mu.Unlock()
		return fmt.Errorf("code is not verified yet")
	}
	email := f.email
	f.mu.Unlock()

	_, err := f.api.ResetPassword(ctx, api.ResetPasswordRequest{
		Email:           email,
		Password:        newPassword,
		ConfirmPassword: confirmPassword,
	})

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase != PhaseOtpVerified {
		slog.Debug("stale reset-password response ignored", "email", email)
		return nil
	}

	if err != nil {
		f.lastError = userMessage(err)
		return err
	}

	f.lastError = ""
	f.cooldown.Stop()
	// Автозакрытие после паузы на подтверждающее сообщение
	f.closeTimer = time.AfterFunc(f.closeDelay, f.close)
	return nil
}

// Cancel закрывает поток (крестик на диалоге). Таймеры останавливаются.
func (f *ResetFlow) Cancel() {
	f.mu.Lock()
	if f.phase == PhaseClosed {
		f.mu.Unlock()
		return
	}
	if f.closeTimer != nil {
		f.closeTimer.Stop()
		f.closeTimer = nil
	}
	f.mu.Unlock()

	f.close()
}

// close переводит поток в PhaseClosed и уведомляет UI
func (f *ResetFlow) close() {
	f.mu.Lock()
	if f.phase == PhaseClosed {
		f.mu.Unlock()
		return
	}
	f.phase = PhaseClosed
	f.otp = ""
	f.cooldown.Stop()
	onClose := f.onClose
	f.mu.Unlock()

	if onClose != nil {
		onClose()
	}
}
