package cli

import (
	"context"
	"fmt"
)

// RunLogin выполняет интерактивный вход
func (c *Cli) RunLogin(ctx context.Context) error {
	fmt.Println("=== Login ===")
	fmt.Println()

	email, err := readInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Println()
	fmt.Println("Authenticating...")

	if err := c.ctrl.Login(ctx, email, password); err != nil {
		return err
	}

	snap := c.ctrl.Session().Snapshot()

	fmt.Println()
	fmt.Println("✓ Login successful!")
	if snap.User != nil {
		fmt.Printf("Welcome back, %s (level %d, %d XP)\n", snap.User.Username, snap.User.Level, snap.User.TotalXP)
	}

	return nil
}
