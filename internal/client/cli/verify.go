package cli

import (
	"context"
	"fmt"
)

// RunVerify запускает верификацию email для уже существующего аккаунта
// (пользователь закрыл диалог при регистрации и вернулся позже)
func (c *Cli) RunVerify(ctx context.Context) error {
	fmt.Println("=== Verify Email ===")
	fmt.Println()

	email, err := readInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}

	fmt.Println("Sending verification code...")
	if err := c.ctrl.SendVerification(ctx, email); err != nil {
		return err
	}

	return c.runVerificationLoop(ctx)
}
