package cli

import (
	"context"
	"fmt"

	"github.com/Maarij2004/code-tutor-authclient/internal/client/authflow"
	"github.com/Maarij2004/code-tutor-authclient/internal/validation"
)

// RunRegister выполняет интерактивную регистрацию, включая цикл
// верификации email, если сервер её потребовал
func (c *Cli) RunRegister(ctx context.Context) error {
	fmt.Println("=== Register ===")
	fmt.Println()

	username, err := readInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}

	email, err := readInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read password confirmation: %w", err)
	}

	terms, err := readInput("Accept terms and conditions? [y/N]: ")
	if err != nil {
		return fmt.Errorf("failed to read answer: %w", err)
	}

	fmt.Println()
	fmt.Println("Registering...")

	err = c.ctrl.Register(ctx, validation.RegistrationInput{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: confirm,
		AcceptedTerms:   terms == "y" || terms == "Y" || terms == "yes",
	})
	if err != nil {
		return err
	}

	if c.ctrl.State() == authflow.StatePendingVerification {
		return c.runVerificationLoop(ctx)
	}

	fmt.Println()
	fmt.Println("✓ Registration successful! You are now logged in.")
	return nil
}

// runVerificationLoop ведёт пользователя через подтверждение email:
// ввод кода, повторная отправка по "r", отмена по "q"
func (c *Cli) runVerificationLoop(ctx context.Context) error {
	ch, ok := c.ctrl.Challenge()
	if !ok {
		return fmt.Errorf("no verification in progress")
	}

	fmt.Println()
	fmt.Printf("A verification code was sent to %s.\n", ch.Email)
	if c.devMode && ch.FallbackOTP != "" {
		// Сервер не смог доставить письмо — код пришёл в ответе.
		// Пользователь всё равно может ввести другой код.
		fmt.Printf("Email delivery failed, fallback code: %s\n", ch.FallbackOTP)
	}

	for {
		ch, ok = c.ctrl.Challenge()
		if !ok {
			return fmt.Errorf("verification was cancelled")
		}

		prompt := "Code (r = resend, q = quit): "
		if !ch.ResendAllowed() && ch.CooldownRemaining > 0 {
			prompt = fmt.Sprintf("Code (resend in %ds, q = quit): ", ch.CooldownRemaining)
		}

		input, err := readInput(prompt)
		if err != nil {
			return fmt.Errorf("failed to read code: %w", err)
		}

		switch input {
		case "q", "Q":
			c.ctrl.CancelVerification()
			fmt.Println("Verification cancelled.")
			return nil
		case "r", "R":
			if err := c.ctrl.ResendOTP(ctx, ch.Email); err != nil {
				fmt.Printf("✗ %v\n", err)
				continue
			}
			fmt.Println("✓ A new code was sent.")
			continue
		}

		otp := validation.NormalizeOTP(input)
		state, err := c.ctrl.VerifyEmail(ctx, ch.Email, otp)
		if err != nil {
			fmt.Printf("✗ %v\n", err)
			continue
		}

		fmt.Println()
		if state == authflow.StateAuthenticated {
			fmt.Println("✓ Email verified! You are now logged in.")
		} else {
			fmt.Println("✓ Email verified! Please login to continue.")
		}
		return nil
	}
}
