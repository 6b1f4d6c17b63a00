package cli

import (
	"context"
	"fmt"

	"github.com/Maarij2004/code-tutor-authclient/internal/client/authflow"
	"github.com/Maarij2004/code-tutor-authclient/internal/validation"
)

// RunForgot проводит пользователя через восстановление пароля:
// запрос кода → подтверждение кода → новый пароль
func (c *Cli) RunForgot(ctx context.Context) error {
	fmt.Println("=== Reset Password ===")
	fmt.Println()

	email, err := readInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}

	flow, err := authflow.NewResetFlow(c.reset, email)
	if err != nil {
		return err
	}
	defer flow.Cancel()

	fmt.Println("Requesting reset code...")
	if err := flow.RequestReset(ctx); err != nil {
		return err
	}

	fmt.Printf("A reset code was sent to %s.\n", email)

	// Фаза AwaitingOtp: цикл ввода кода с возможностью resend
	for flow.Phase() == authflow.PhaseAwaitingOtp {
		prompt := "Code (r = resend, q = quit): "
		if remaining := flow.CooldownRemaining(); remaining > 0 {
			prompt = fmt.Sprintf("Code (resend in %ds, q = quit): ", remaining)
		}

		input, err := readInput(prompt)
		if err != nil {
			return fmt.Errorf("failed to read code: %w", err)
		}

		switch input {
		case "q", "Q":
			fmt.Println("Password reset cancelled.")
			return nil
		case "r", "R":
			if err := flow.ResendOTP(ctx); err != nil {
				fmt.Printf("✗ %v\n", err)
				continue
			}
			fmt.Println("✓ A new code was sent.")
			continue
		}

		if err := flow.VerifyOTP(ctx, validation.NormalizeOTP(input)); err != nil {
			fmt.Printf("✗ %v\n", err)
		}
	}

	if flow.Phase() != authflow.PhaseOtpVerified {
		return fmt.Errorf("password reset was cancelled")
	}

	// Фаза OtpVerified: новый пароль
	fmt.Println()
	fmt.Println("Code verified. Choose a new password.")

	for {
		password, err := readPassword("New password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}

		confirm, err := readPassword("Confirm new password: ")
		if err != nil {
			return fmt.Errorf("failed to read password confirmation: %w", err)
		}

		if err := flow.ResetPassword(ctx, password, confirm); err != nil {
			fmt.Printf("✗ %v\n", err)
			continue
		}

		fmt.Println()
		fmt.Println("✓ Password updated! Please login with your new password.")
		return nil
	}
}
