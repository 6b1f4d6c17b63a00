package cli

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Maarij2004/code-tutor-authclient/internal/client/oauth"
)

// RunOAuth завершает вход через браузерный OAuth: пользователь вставляет
// redirect URL, на который провайдер вернул его после согласия
func (c *Cli) RunOAuth(ctx context.Context) error {
	fmt.Println("=== OAuth Login ===")
	fmt.Println()
	fmt.Println("Finish the sign-in in your browser, then paste the full")
	fmt.Println("redirect URL from the address bar below.")
	fmt.Println()

	raw, err := readInput("Redirect URL: ")
	if err != nil {
		return fmt.Errorf("failed to read redirect URL: %w", err)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid redirect URL: %w", err)
	}

	handler := oauth.NewCallbackHandler(c.tokens, c.ctrl)

	outcome, err := handler.Handle(ctx, parsed.Query())
	if err != nil {
		return err
	}

	if !outcome.Authenticated {
		fmt.Println()
		fmt.Println("Sign-in was not completed. Please try again or use `login`.")
		return nil
	}

	snap := c.ctrl.Session().Snapshot()

	fmt.Println()
	fmt.Println("✓ Login successful!")
	if snap.User != nil {
		fmt.Printf("Welcome back, %s (level %d, %d XP)\n", snap.User.Username, snap.User.Level, snap.User.TotalXP)
	}

	return nil
}
