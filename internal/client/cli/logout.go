package cli

import (
	"context"
	"fmt"
)

// RunLogout сбрасывает сессию и сохранённый токен
func (c *Cli) RunLogout(ctx context.Context) error {
	if err := c.ctrl.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	fmt.Println("✓ Logged out.")
	return nil
}
