package authflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clientapi "github.com/Maarij2004/code-tutor-authclient/internal/client/api"
	"github.com/Maarij2004/code-tutor-authclient/internal/client/session"
	"github.com/Maarij2004/code-tutor-authclient/internal/client/storage"
	"github.com/Maarij2004/code-tutor-authclient/internal/client/timer"
	"github.com/Maarij2004/code-tutor-authclient/internal/validation"
	"github.com/Maarij2004/code-tutor-authclient/pkg/api"
)

// mockAPIClient implements APIClient for testing
type mockAPIClient struct {
	mu sync.Mutex

	loginFn    func(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error)
	registerFn func(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error)
	sendFn     func(ctx context.Context, req api.SendVerificationRequest) (*api.MessageResponse, error)
	verifyFn   func(ctx context.Context, req api.VerifyEmailRequest) (*api.VerifyEmailResponse, error)
	resendFn   func(ctx context.Context, req api.ResendOTPRequest) (*api.MessageResponse, error)
	profileFn  func(ctx context.Context, token string) (*api.User, error)

	loginCalls    int
	registerCalls int
	sendCalls     int
	verifyCalls   int
	resendCalls   int
	profileCalls  int
}

func (m *mockAPIClient) Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error) {
	m.mu.Lock()
	m.loginCalls++
	fn := m.loginFn
	m.mu.Unlock()
	return fn(ctx, req)
}

func (m *mockAPIClient) Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
	m.mu.Lock()
	m.registerCalls++
	fn := m.registerFn
	m.mu.Unlock()
	return fn(ctx, req)
}

func (m *mockAPIClient) SendVerification(ctx context.Context, req api.SendVerificationRequest) (*api.MessageResponse, error) {
	m.mu.Lock()
	m.sendCalls++
	fn := m.sendFn
	m.mu.Unlock()
	return fn(ctx, req)
}

func (m *mockAPIClient) VerifyEmail(ctx context.Context, req api.VerifyEmailRequest) (*api.VerifyEmailResponse, error) {
	m.mu.Lock()
	m.verifyCalls++
	fn := m.verifyFn
	m.mu.Unlock()
	return fn(ctx, req)
}

func (m *mockAPIClient) ResendOTP(ctx context.Context, req api.ResendOTPRequest) (*api.MessageResponse, error) {
	m.mu.Lock()
	m.resendCalls++
	fn := m.resendFn
	m.mu.Unlock()
	return fn(ctx, req)
}

func (m *mockAPIClient) GetProfile(ctx context.Context, token string) (*api.User, error) {
	m.mu.Lock()
	m.profileCalls++
	fn := m.profileFn
	m.mu.Unlock()
	return fn(ctx, token)
}

// mockTokenStorage implements storage.TokenStorage for testing
type mockTokenStorage struct {
	mu       sync.Mutex
	token    string
	hasToken bool

	getCalls    int
	saveCalls   int
	deleteCalls int
}

func (m *mockTokenStorage) SaveToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	m.token = token
	m.hasToken = true
	return nil
}

func (m *mockTokenStorage) GetToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if !m.hasToken {
		return "", storage.ErrTokenNotFound
	}
	return m.token, nil
}

func (m *mockTokenStorage) DeleteToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	m.token = ""
	m.hasToken = false
	return nil
}

func (m *mockTokenStorage) stored() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.hasToken
}

func testUser() *api.User {
	return &api.User{ID: "user-123", Username: "nina", Email: "n@x.com", Level: 1}
}

// тестовый контроллер с быстрым таймером
func newTestController(apiClient *mockAPIClient, ts storage.TokenStorage) *Controller {
	return New(
		apiClient,
		session.NewStore(ts),
		WithTimerOptions(timer.WithInterval(5*time.Millisecond)),
	)
}

func TestController_Login(t *testing.T) {
	ctx := context.Background()
	ts := &mockTokenStorage{}
	apiClient := &mockAPIClient{
		loginFn: func(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error) {
			assert.Equal(t, "n@x.com", req.Email)
			return &api.AuthResponse{User: testUser(), Token: "bearer-token"}, nil
		},
	}
	c := newTestController(apiClient, ts)

	err := c.Login(ctx, "n@x.com", "longpass1")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, c.State())

	snap := c.Session().Snapshot()
	assert.Equal(t, "bearer-token", snap.Token)
	require.NotNil(t, snap.User)
	assert.Equal(t, "nina", snap.User.Username)

	// Токен персистится
	token, has := ts.stored()
	assert.True(t, has)
	assert.Equal(t, "bearer-token", token)
}

func TestController_Login_ValidationBlocksNetwork(t *testing.T) {
	ctx := context.Background()
	apiClient := &mockAPIClient{}
	c := newTestController(apiClient, &mockTokenStorage{})

	err := c.Login(ctx, "", "longpass1")
	require.Error(t, err)
	assert.Equal(t, "Email and password are required", err.Error())

	err = c.Login(ctx, "n@x.com", "")
	require.Error(t, err)

	// Сетевых вызовов не было, состояние не изменилось
	assert.Equal(t, 0, apiClient.loginCalls)
	assert.Equal(t, StateAnonymous, c.State())
}

func TestController_Login_ServerError(t *testing.T) {
	ctx := context.Background()
	apiClient := &mockAPIClient{
		loginFn: func(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error) {
			return nil, &clientapi.RequestError{StatusCode: 401, Message: "Invalid credentials"}
		},
	}
	c := newTestController(apiClient, &mockTokenStorage{})

	err := c.Login(ctx, "n@x.com", "wrongpass1")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())

	assert.Equal(t, StateAnonymous, c.State())
	assert.Equal(t, session.StatusAnonymous, c.Session().Snapshot().Status())
}

// Регистрация с requires_verification
func TestController_Register_RequiresVerification(t *testing.T) {
	ctx := context.Background()
	ts := &mockTokenStorage{}
	apiClient := &mockAPIClient{
		registerFn: func(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
			return &api.RegisterResponse{RequiresVerification: true, Email: "n@x.com"}, nil
		},
	}
	c := newTestController(apiClient, ts)

	err := c.Register(ctx, validation.RegistrationInput{
		Username:        "nina",
		Email:           "n@x.com",
		Password:        "longpass1",
		ConfirmPassword: "longpass1",
		AcceptedTerms:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, StatePendingVerification, c.State())

	ch, ok := c.Challenge()
	require.True(t, ok)
	assert.Equal(t, "n@x.com", ch.Email)

	// Сессия не заполняется при PendingVerification
	assert.Equal(t, session.StatusAnonymous, c.Session().Snapshot().Status())
	_, has := ts.stored()
	assert.False(t, has)

	// Код только что отправлен — resend на cooldown
	assert.False(t, ch.ResendAllowed())
}

func TestController_Register_DirectLogin(t *testing.T) {
	ctx := context.Background()
	apiClient := &mockAPIClient{
		registerFn: func(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
			return &api.RegisterResponse{User: testUser(), Token: "bearer-token"}, nil
		},
	}
	c := newTestController(apiClient, &mockTokenStorage{})

	err := c.Register(ctx, validation.RegistrationInput{
		Username:        "nina",
		Email:           "n@x.com",
		Password:        "longpass1",
		ConfirmPassword: "longpass1",
		AcceptedTerms:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, c.State())

	_, ok := c.Challenge()
	assert.False(t, ok)
}

func TestController_Register_TermsGate(t *testing.T) {
	ctx := context.Background()
	apiClient := &mockAPIClient{}
	c := newTestController(apiClient, &mockTokenStorage{})

	err := c.Register(ctx, validation.RegistrationInput{
		Username:        "nina",
		Email:           "n@x.com",
		Password:        "longpass1",
		ConfirmPassword: "longpass1",
		AcceptedTerms:   false,
	})
	require.Error(t, err)
	assert.Equal(t, "You must accept the terms and conditions", err.Error())
	assert.Equal(t, 0, apiClient.registerCalls)
}

// Dev fallback: код из ответа сохраняется для pre-fill
func TestController_Register_FallbackOTP(t *testing.T) {
	ctx := context.Background()
	apiClient := &mockAPIClient{
		registerFn: func(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
			return &api.RegisterResponse{RequiresVerification: true, Email: "n@x.com", OTP: "123456"}, nil
		},
	}
	c := newTestController(apiClient, &mockTokenStorage{})

	require.NoError(t, c.Register(ctx, validation.RegistrationInput{
		Username:        "nina",
		Email:           "n@x.com",
		Password:        "longpass1",
		ConfirmPassword: "longpass1",
		AcceptedTerms:   true,
	}))

	ch, ok := c.Challenge()
	require.True(t, ok)
	assert.Equal(t, "123456", ch.FallbackOTP)
}

// Resend при активном cooldown отклоняется без сетевого вызова
func TestController_ResendOTP_CooldownGate(t *testing.T) {
	ctx := context.Background()
	apiClient := &mockAPIClient{
		registerFn: func(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
			return &api.RegisterResponse{RequiresVerification: true, Email: "n@x.com"}, nil
		},
		resendFn: func(ctx context.Context, req api.ResendOTPRequest) (*api.MessageResponse, error) {
			return &api.MessageResponse{Message: "sent"}, nil
		},
	}
	c := New(
		apiClient,
		session.NewStore(&mockTokenStorage{}),
		WithTimerOptions(timer.WithInterval(time.Hour)), // cooldown "застыл"
	)

	require.NoError(t, c.Register(ctx, validation.RegistrationInput{
		Username:        "nina",
		Email:           "n@x.com",
		Password:        "longpass1",
		ConfirmPassword: "longpass1",
		AcceptedTerms:   true,
	}))

	ch, _ := c.Challenge()
	require.Greater(t, ch.CooldownRemaining, 0)

	err := c.ResendOTP(ctx, "n@x.com")
	assert.ErrorIs(t, err, ErrCooldownActive)

	// Сетевого вызова не было, состояние не изменилось
	assert.Equal(t, 0, apiClient.resendCalls)
	assert.Equal(t, StatePendingVerification, c.State())
}

func TestController_SendVerification_RestartsCooldown(t *testing.T) {
	ctx := context.Background()
	apiClient := &mockAPIClient{
		sendFn: func(ctx context.Context, req api.SendVerificationRequest) (*api.MessageResponse, error) {
			return &api.MessageResponse{Message: "sent"}, nil
		},
	}
	c := newTestController(apiClient, &mockTokenStorage{})

	// Challenge ещё нет — SendVerification создает его
	err := c.SendVerification(ctx, "n@x.com")
	require.NoError(t, err)
	assert.Equal(t, StatePendingVerification, c.State())

	ch, ok := c.Challenge()
	require.True(t, ok)
	assert.Equal(t, "n@x.com", ch.Email)
	assert.Greater(t, ch.CooldownRemaining, 0)
	assert.False(t, ch.ResendAllowed())
}

func TestController_SendVerification_Failure(t *testing.T) {
	ctx := context.Background()
	apiClient := &mockAPIClient{
		sendFn: func(ctx context.Context, req api.SendVerificationRequest) (*api.MessageResponse, error) {
			return nil, &clientapi.RequestError{StatusCode: 500, Message: "Failed to send email"}
		},
	}
	c := newTestController(apiClient, &mockTokenStorage{})

	err := c.SendVerification(ctx, "n@x.com")
	require.Error(t, err)

	// Challenge сохранён, ошибка записана, cooldown не стартовал
	ch, ok := c.Challenge()
	require.True(t, ok)
	assert.Equal(t, "Failed to send email", ch.LastError)
	assert.Equal(t, 0, ch.CooldownRemaining)
	assert.True(t, ch.ResendAllowed())
}

// Round trip: register → requires_verification → verify → Authenticated
func TestController_RegisterVerifyRoundTrip(t *testing.T) {
	ctx := context.Background()
	ts := &mockTokenStorage{}
	user := testUser()
	apiClient := &mockAPIClient{
		registerFn: func(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
			return &api.RegisterResponse{RequiresVerification: true, Email: req.Email}, nil
		},
		verifyFn: func(ctx context.Context, req api.VerifyEmailRequest) (*api.VerifyEmailResponse, error) {
			assert.Equal(t, "123456", req.OTP)
			return &api.VerifyEmailResponse{User: user, Token: "bearer-token"}, nil
		},
	}
	c := newTestController(apiClient, ts)

	require.NoError(t, c.Register(ctx, validation.RegistrationInput{
		Username:        "nina",
		Email:           "n@x.com",
		Password:        "longpass1",
		ConfirmPassword: "longpass1",
		AcceptedTerms:   true,
	}))
	require.Equal(t, StatePendingVerification, c.State())

	state, err := c.VerifyEmail(ctx, "n@x.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, state)
	assert.Equal(t, StateAuthenticated, c.State())

	// Challenge уничтожен, сессия содержит email регистрации
	_, ok := c.Challenge()
	assert.False(t, ok)

	snap := c.Session().Snapshot()
	require.NotNil(t, snap.User)
	assert.Equal(t, "n@x.com", snap.User.Email)
}

func TestController_VerifyEmail_BadOTP(t *testing.T) {
	ctx := context.Background()
	apiClient := &mockAPIClient{
		registerFn: func(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
			return &api.RegisterResponse{RequiresVerification: true, Email: "n@x.com"}, nil
		},
	}
	c := newTestController(apiClient, &mockTokenStorage{})

	require.NoError(t, c.Register(ctx, validation.RegistrationInput{
		Username:        "nina",
		Email:           "n@x.com",
		Password:        "longpass1",
		ConfirmPassword: "longpass1",
		AcceptedTerms:   true,
	}))

	// Невалидный код отклоняется до сети
	state, err := c.VerifyEmail(ctx, "n@x.com", "12345")
	require.Error(t, err)
	assert.Equal(t, StatePendingVerification, state)
	assert.Equal(t, 0, apiClient.verifyCalls)
}

func TestController_VerifyEmail_ServerRejects(t *testing.T) {
	ctx := context.Background()
	apiClient := &mockAPIClient{
		registerFn: func(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
			return &api.RegisterResponse{RequiresVerification: true, Email: "n@x.com"}, nil
		},
		verifyFn: func(ctx context.Context, req api.VerifyEmailRequest) (*api.VerifyEmailResponse, error) {
			return nil, &clientapi.RequestError{StatusCode: 400, Message: "Invalid code"}
		},
	}
	c := newTestController(apiClient, &mockTokenStorage{})

	require.NoError(t, c.Register(ctx, validation.RegistrationInput{
		Username:        "nina",
		Email:           "n@x.com",
		Password:        "longpass1",
		ConfirmPassword: "longpass1",
		AcceptedTerms:   true,
	}))

	state, err := c.VerifyEmail(ctx, "n@x.com", "000000")
	require.Error(t, err)
	assert.Equal(t, StatePendingVerification, state)
	assert.Equal(t, StatePendingVerification, c.State())

	// Challenge жив, ошибка записана; автоповторов нет
	ch, ok := c.Challenge()
	require.True(t, ok)
	assert.Equal(t, "Invalid code", ch.LastError)
	assert.Equal(t, 1, apiClient.verifyCalls)
}

// Open Question: верификация успешна, но сервер не вернул сессию —
// challenge уничтожается, пользователь входит отдельно
func TestController_VerifyEmail_NoAutoLogin(t *testing.T) {
	ctx := context.Background()
	apiClient := &mockAPIClient{
		registerFn: func(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
			return &api.RegisterResponse{RequiresVerification: true, Email: "n@x.com"}, nil
		},
		verifyFn: func(ctx context.Context, req api.VerifyEmailRequest) (*api.VerifyEmailResponse, error) {
			return &api.VerifyEmailResponse{Message: "Email verified"}, nil
		},
	}
	c := newTestController(apiClient, &mockTokenStorage{})

	require.NoError(t, c.Register(ctx, validation.RegistrationInput{
		Username:        "nina",
		Email:           "n@x.com",
		Password:        "longpass1",
		ConfirmPassword: "longpass1",
		AcceptedTerms:   true,
	}))

	state, err := c.VerifyEmail(ctx, "n@x.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, StateAnonymous, state)
	assert.Equal(t, StateAnonymous, c.State())

	_, ok := c.Challenge()
	assert.False(t, ok)
	assert.Equal(t, session.StatusAnonymous, c.Session().Snapshot().Status())
}

// Поздний ответ устаревшей проверки не перетирает новое состояние
func TestController_VerifyEmail_StaleResponseIgnored(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	started := make(chan struct{})
	call := 0
	var callMu sync.Mutex

	apiClient := &mockAPIClient{
		registerFn: func(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
			return &api.RegisterResponse{RequiresVerification: true, Email: "n@x.com"}, nil
		},
		verifyFn: func(ctx context.Context, req api.VerifyEmailRequest) (*api.VerifyEmailResponse, error) {
			callMu.Lock()
			call++
			mine := call
			callMu.Unlock()
			if mine == 1 {
				// Первый запрос "медленный": отпускается после второго
				close(started)
				<-release
				return nil, &clientapi.RequestError{StatusCode: 400, Message: "Invalid code"}
			}
			return &api.VerifyEmailResponse{User: testUser(), Token: "bearer-token"}, nil
		},
	}
	c := newTestController(apiClient, &mockTokenStorage{})

	require.NoError(t, c.Register(ctx, validation.RegistrationInput{
		Username:        "nina",
		Email:           "n@x.com",
		Password:        "longpass1",
		ConfirmPassword: "longpass1",
		AcceptedTerms:   true,
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Медленный первый запрос; его поздний ответ должен быть отброшен
		state, err := c.VerifyEmail(ctx, "n@x.com", "111111")
		assert.NoError(t, err)
		assert.Equal(t, StateAuthenticated, state)
	}()

	<-started

	// Второй, быстрый запрос успевает раньше и логинит пользователя
	state, err := c.VerifyEmail(ctx, "n@x.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, state)

	close(release)
	wg.Wait()

	// Поздний отказ не откатил состояние
	assert.Equal(t, StateAuthenticated, c.State())
	assert.Equal(t, session.StatusAuthenticated, c.Session().Snapshot().Status())
}

func TestController_CancelVerification(t *testing.T) {
	ctx := context.Background()
	apiClient := &mockAPIClient{
		registerFn: func(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
			return &api.RegisterResponse{RequiresVerification: true, Email: "n@x.com"}, nil
		},
	}
	c := newTestController(apiClient, &mockTokenStorage{})

	require.NoError(t, c.Register(ctx, validation.RegistrationInput{
		Username:        "nina",
		Email:           "n@x.com",
		Password:        "longpass1",
		ConfirmPassword: "longpass1",
		AcceptedTerms:   true,
	}))

	c.CancelVerification()
	assert.Equal(t, StateAnonymous, c.State())
	_, ok := c.Challenge()
	assert.False(t, ok)

	// Повторная отмена безопасна
	c.CancelVerification()
}

// Идемпотентность: два InitializeAuth без токена — Anonymous оба раза
func TestController_InitializeAuth_NoToken(t *testing.T) {
	ctx := context.Background()
	ts := &mockTokenStorage{}
	apiClient := &mockAPIClient{}
	c := newTestController(apiClient, ts)

	require.NoError(t, c.InitializeAuth(ctx))
	assert.Equal(t, StateAnonymous, c.State())

	require.NoError(t, c.InitializeAuth(ctx))
	assert.Equal(t, StateAnonymous, c.State())

	// Профиль не запрашивался, токен не появился
	assert.Equal(t, 0, apiClient.profileCalls)
	_, has := ts.stored()
	assert.False(t, has)
}

func TestController_InitializeAuth_Success(t *testing.T) {
	ctx := context.Background()
	ts := &mockTokenStorage{}
	require.NoError(t, ts.SaveToken(ctx, "stored-token"))

	apiClient := &mockAPIClient{
		profileFn: func(ctx context.Context, token string) (*api.User, error) {
			assert.Equal(t, "stored-token", token)
			return testUser(), nil
		},
	}
	c := newTestController(apiClient, ts)

	require.NoError(t, c.InitializeAuth(ctx))
	assert.Equal(t, StateAuthenticated, c.State())

	snap := c.Session().Snapshot()
	assert.Equal(t, "stored-token", snap.Token)
	require.NotNil(t, snap.User)
}

// BootstrapError: протухший токен удаляется молча, без ошибки
func TestController_InitializeAuth_ExpiredToken(t *testing.T) {
	ctx := context.Background()
	ts := &mockTokenStorage{}
	require.NoError(t, ts.SaveToken(ctx, "expired-token"))

	apiClient := &mockAPIClient{
		profileFn: func(ctx context.Context, token string) (*api.User, error) {
			return nil, &clientapi.RequestError{StatusCode: 401, Message: "Unauthorized"}
		},
	}
	c := newTestController(apiClient, ts)

	err := c.InitializeAuth(ctx)
	require.NoError(t, err) // не ошибка для пользователя

	assert.Equal(t, StateAnonymous, c.State())
	_, has := ts.stored()
	assert.False(t, has) // токен вычищен
}

// Конкурентные InitializeAuth разделяют один bootstrap
func TestController_InitializeAuth_Concurrent(t *testing.T) {
	ctx := context.Background()
	ts := &mockTokenStorage{}
	require.NoError(t, ts.SaveToken(ctx, "stored-token"))

	block := make(chan struct{})
	apiClient := &mockAPIClient{
		profileFn: func(ctx context.Context, token string) (*api.User, error) {
			<-block
			return testUser(), nil
		},
	}
	c := newTestController(apiClient, ts)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.InitializeAuth(ctx))
		}()
	}

	// Даем всем горутинам встать в очередь и отпускаем профиль
	time.Sleep(20 * time.Millisecond)
	close(block)
	wg.Wait()

	assert.Equal(t, StateAuthenticated, c.State())
	assert.Equal(t, 1, apiClient.profileCalls)
}

// Окно bootstrap: токен уже виден, профиль ещё нет
func TestController_InitializeAuth_AuthenticatingWindow(t *testing.T) {
	ctx := context.Background()
	ts := &mockTokenStorage{}
	require.NoError(t, ts.SaveToken(ctx, "stored-token"))

	inProfile := make(chan struct{})
	release := make(chan struct{})
	apiClient := &mockAPIClient{
		profileFn: func(ctx context.Context, token string) (*api.User, error) {
			close(inProfile)
			<-release
			return testUser(), nil
		},
	}
	c := newTestController(apiClient, ts)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.InitializeAuth(ctx)
	}()

	<-inProfile
	snap := c.Session().Snapshot()
	assert.Equal(t, session.StatusAuthenticating, snap.Status())
	assert.Equal(t, StateAuthenticating, c.State())

	close(release)
	<-done
	assert.Equal(t, session.StatusAuthenticated, c.Session().Snapshot().Status())
}

func TestController_Logout(t *testing.T) {
	ctx := context.Background()
	ts := &mockTokenStorage{}
	apiClient := &mockAPIClient{
		loginFn: func(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error) {
			return &api.AuthResponse{User: testUser(), Token: "bearer-token"}, nil
		},
	}
	c := newTestController(apiClient, ts)

	require.NoError(t, c.Login(ctx, "n@x.com", "longpass1"))
	require.Equal(t, StateAuthenticated, c.State())

	require.NoError(t, c.Logout(ctx))
	assert.Equal(t, StateAnonymous, c.State())
	assert.Equal(t, session.StatusAnonymous, c.Session().Snapshot().Status())

	_, has := ts.stored()
	assert.False(t, has)

	// Logout без сессии тоже успешен
	require.NoError(t, c.Logout(ctx))
}

func TestController_Subscribe(t *testing.T) {
	ctx := context.Background()
	apiClient := &mockAPIClient{
		loginFn: func(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error) {
			return &api.AuthResponse{User: testUser(), Token: "bearer-token"}, nil
		},
	}
	c := newTestController(apiClient, &mockTokenStorage{})

	events, unsubscribe := c.Subscribe(8)
	defer unsubscribe()

	require.NoError(t, c.Login(ctx, "n@x.com", "longpass1"))

	var got []State
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case ev := <-events:
			got = append(got, ev.State)
		case <-timeout:
			t.Fatalf("expected 2 state events, got %v", got)
		}
	}

	assert.Equal(t, []State{StateAuthenticating, StateAuthenticated}, got)
}
