package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Maarij2004/code-tutor-authclient/internal/client/storage"
	"github.com/Maarij2004/code-tutor-authclient/pkg/api"
)

// Status описывает производное состояние сессии
type Status int

const (
	// StatusAnonymous — ни токена, ни профиля
	StatusAnonymous Status = iota
	// StatusAuthenticating — токен есть, профиль ещё не загружен.
	// Потребители обязаны трактовать это окно как "идёт аутентификация",
	// а не как anonymous и не как authenticated.
	StatusAuthenticating
	// StatusAuthenticated — токен и профиль загружены
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Snapshot — консистентная копия состояния сессии, снятая под одной
// блокировкой. Не бывает "рваных" чтений token против user.
type Snapshot struct {
	Token string
	User  *api.User
}

// Status возвращает производный статус снимка
func (s Snapshot) Status() Status {
	switch {
	case s.Token == "":
		return StatusAnonymous
	case s.User == nil:
		return StatusAuthenticating
	default:
		return StatusAuthenticated
	}
}

// Event отправляется подписчикам после каждой мутации сессии
type Event struct {
	Snapshot Snapshot
}

// UserPatch — частичное обновление профиля. Заполненные поля заменяют
// соответствующие поля профиля, остальные не трогаются.
type UserPatch struct {
	Username *string
	Email    *string
	Avatar   *string
	Level    *int
	TotalXP  *int
	Streak   *int
}

// Store holds the current session (token + user profile). One instance per
// process; every auth flow mutates the session only through this type.
// Invariant: User is set only while Token is set. The converse is allowed —
// a token may exist while the profile is still loading (bootstrap window).
type Store struct {
	mu      sync.RWMutex
	token   string
	user    *api.User
	storage storage.TokenStorage

	subMu sync.Mutex
	subs  map[uuid.UUID]chan Event
}

// NewStore создает хранилище сессии поверх durable token storage
func NewStore(tokenStorage storage.TokenStorage) *Store {
	return &Store{
		storage: tokenStorage,
		subs:    make(map[uuid.UUID]chan Event),
	}
}

// Snapshot возвращает консистентную копию состояния
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{Token: s.token}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// SetSession целиком заменяет сессию (успешный login, register без
// верификации, verify с auto-login, OAuth callback) и персистит токен
func (s *Store) SetSession(ctx context.Context, token string, user *api.User) error {
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}
	if user == nil {
		return fmt.Errorf("user cannot be nil")
	}

	if err := s.storage.SaveToken(ctx, token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}

	s.mu.Lock()
	s.token = token
	u := *user
	s.user = &u
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// BeginAuthenticating помещает в память токен, найденный в storage при
// bootstrap. Профиль ещё не загружен — статус становится Authenticating.
func (s *Store) BeginAuthenticating(token string) {
	s.mu.Lock()
	s.token = token
	s.user = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// CompleteAuthenticating устанавливает профиль после успешной загрузки.
// Требует уже установленного токена (инвариант user ⇒ token).
func (s *Store) CompleteAuthenticating(user *api.User) error {
	if user == nil {
		return fmt.Errorf("user cannot be nil")
	}

	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		return fmt.Errorf("cannot set user without token")
	}
	u := *user
	s.user = &u
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// UpdateUser точечно обновляет поля профиля (merge).
// Единственный разрешённый способ частичной мутации профиля.
func (s *Store) UpdateUser(patch UserPatch) error {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return fmt.Errorf("no user in session")
	}

	if patch.Username != nil {
		s.user.Username = *patch.Username
	}
	if patch.Email != nil {
		s.user.Email = *patch.Email
	}
	if patch.Avatar != nil {
		s.user.Avatar = *patch.Avatar
	}
	if patch.Level != nil {
		s.user.Level = *patch.Level
	}
	if patch.TotalXP != nil {
		s.user.TotalXP = *patch.TotalXP
	}
	if patch.Streak != nil {
		s.user.Streak = *patch.Streak
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// Clear сбрасывает сессию и удаляет персистентный токен
// (logout, откат после неудачного bootstrap). Память очищается
// безусловно, даже если удаление из storage не удалось.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)

	if err := s.storage.DeleteToken(ctx); err != nil {
		return fmt.Errorf("failed to delete persisted token: %w", err)
	}
	return nil
}

// PersistedToken читает токен из durable storage (bootstrap)
func (s *Store) PersistedToken(ctx context.Context) (string, error) {
	return s.storage.GetToken(ctx)
}

// PersistToken сохраняет токен в durable storage, не трогая состояние в
// памяти (OAuth callback персистит токен до bootstrap)
func (s *Store) PersistToken(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}
	return s.storage.SaveToken(ctx, token)
}

// TokenExpiryHint декодирует exp из текущего токена без проверки подписи.
// Только для отображения: источником истины о валидности токена остаётся
// профильный запрос к серверу.
func (s *Store) TokenExpiryHint() (time.Time, bool) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return time.Time{}, false
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time, true
}

// Subscribe регистрирует подписчика на изменения сессии.
// Возвращает канал событий и функцию отписки. Медленный подписчик
// теряет события, но никогда не блокирует мутации.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}

	id := uuid.New()
	ch := make(chan Event, buffer)

	s.subMu.Lock()
	s.subs[id] = ch
	s.subMu.Unlock()

	unsubscribe := func() {
		s.subMu.Lock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
		s.subMu.Unlock()
	}

	return ch, unsubscribe
}

// notify рассылает событие всем подписчикам
func (s *Store) notify(snap Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- Event{Snapshot: snap}:
		default:
			// Подписчик не успевает — событие пропускается
		}
	}
}
