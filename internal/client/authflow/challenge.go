package authflow

import (
	"github.com/google/uuid"

	"github.com/Maarij2004/code-tutor-authclient/internal/client/timer"
)

// challenge — внутреннее состояние текущей email-верификации.
// Создается, когда регистрация (или явный запрос верификации) сообщает
// requires_verification; уничтожается при успешной верификации или отмене.
// Все поля защищены мьютексом контроллера.
type challenge struct {
	id          uuid.UUID
	email       string
	fallbackOTP string // dev fallback: код из ответа сервера, для pre-fill
	isSending   bool
	lastError   string
	cooldown    *timer.Cooldown
	sendSeq     uint64 // sequence tag отправок кода
	verifySeq   uint64 // sequence tag проверок кода
}

// Challenge — копия состояния верификации для UI.
// ResendAllowed истинно тогда и только тогда, когда cooldown на нуле
// и отправка не идёт прямо сейчас.
type Challenge struct {
	ID                uuid.UUID
	Email             string
	FallbackOTP       string
	IsSending         bool
	LastError         string
	CooldownRemaining int
}

// ResendAllowed сообщает, доступна ли повторная отправка кода
func (c Challenge) ResendAllowed() bool {
	return c.CooldownRemaining == 0 && !c.IsSending
}

// newChallenge создает challenge с собственным таймером
func newChallenge(email, fallbackOTP string, opts ...timer.Option) *challenge {
	return &challenge{
		id:          uuid.New(),
		email:       email,
		fallbackOTP: fallbackOTP,
		cooldown:    timer.New(opts...),
	}
}

// view снимает копию для UI
func (c *challenge) view() Challenge {
	return Challenge{
		ID:                c.id,
		Email:             c.email,
		FallbackOTP:       c.fallbackOTP,
		IsSending:         c.isSending,
		LastError:         c.lastError,
		CooldownRemaining: c.cooldown.Remaining(),
	}
}

// destroy останавливает таймер challenge. Обязателен при любом пути
// уничтожения, иначе таймер продолжит тикать после закрытия диалога.
func (c *challenge) destroy() {
	c.cooldown.Stop()
}
