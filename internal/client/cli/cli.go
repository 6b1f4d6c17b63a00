package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Maarij2004/code-tutor-authclient/internal/client/authflow"
	"github.com/Maarij2004/code-tutor-authclient/internal/client/storage"
)

// Cli связывает интерактивные команды с контроллером аутентификации
type Cli struct {
	ctrl    *authflow.Controller
	reset   authflow.ResetAPIClient
	tokens  storage.TokenStorage
	devMode bool
}

// New создает Cli
func New(ctrl *authflow.Controller, resetAPI authflow.ResetAPIClient, tokens storage.TokenStorage, devMode bool) *Cli {
	return &Cli{
		ctrl:    ctrl,
		reset:   resetAPI,
		tokens:  tokens,
		devMode: devMode,
	}
}

// PrintUsage выводит справку по командам
func PrintUsage() {
	fmt.Println("CodeTutor Client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  codetutor [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version        Show version information")
	fmt.Println("  --server URL     Server URL (default: http://localhost:8080)")
	fmt.Println("  --db PATH        Path to local database (default: codetutor-client.db)")
	fmt.Println("  --timeout DUR    HTTP request timeout (default: 30s)")
	fmt.Println("  --dev            Show fallback verification codes (dev mode)")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  CODETUTOR_SERVER_URL, CODETUTOR_DB_PATH,")
	fmt.Println("  CODETUTOR_REQUEST_TIMEOUT, CODETUTOR_DEV_MODE")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  register         Register new account (with email verification)")
	fmt.Println("  login            Login with email and password")
	fmt.Println("  verify           Verify email address for an existing account")
	fmt.Println("  forgot           Reset a forgotten password")
	fmt.Println("  oauth            Complete a browser OAuth login (paste redirect URL)")
	fmt.Println("  status           Show session status")
	fmt.Println("  logout           Logout and clear the stored session")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  codetutor register")
	fmt.Println("  codetutor --server https://api.example.com login")
	fmt.Println("  codetutor status")
}

// readInput читает строку из stdin
func readInput(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// readPassword читает пароль без отображения на экране
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // Переход на новую строку после ввода пароля
	if err != nil {
		return "", err
	}
	return string(passwordBytes), nil
}
