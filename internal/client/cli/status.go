package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/Maarij2004/code-tutor-authclient/internal/client/session"
)

// RunStatus восстанавливает сессию из сохранённого токена и печатает её
func (c *Cli) RunStatus(ctx context.Context) error {
	fmt.Println("=== Session Status ===")
	fmt.Println()

	// Bootstrap: отсутствие или протухание токена — не ошибка
	if err := c.ctrl.InitializeAuth(ctx); err != nil {
		return fmt.Errorf("failed to initialize session: %w", err)
	}

	snap := c.ctrl.Session().Snapshot()
	fmt.Println(formatStatus(snap))

	if snap.Status() != session.StatusAuthenticated {
		fmt.Println()
		fmt.Println("Run 'codetutor login' to authenticate.")
		return nil
	}

	if expiry, ok := c.ctrl.Session().TokenExpiryHint(); ok {
		fmt.Printf("Token expires: %s\n", expiry.Format(time.RFC3339))
		if remaining := time.Until(expiry); remaining > 0 {
			fmt.Printf("Time remaining: %s\n", remaining.Round(time.Second))
		}
	}

	return nil
}

// formatStatus готовит человекочитаемую сводку сессии
func formatStatus(snap session.Snapshot) string {
	switch snap.Status() {
	case session.StatusAuthenticated:
		u := snap.User
		return fmt.Sprintf(
			"Status: Authenticated\nUsername: %s\nEmail: %s\nLevel: %d\nTotal XP: %d\nStreak: %d day(s)",
			u.Username, u.Email, u.Level, u.TotalXP, u.Streak,
		)
	case session.StatusAuthenticating:
		return "Status: Authenticating (profile is still loading)"
	default:
		return "Status: Not authenticated"
	}
}
