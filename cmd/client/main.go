package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	apiclient "github.com/Maarij2004/code-tutor-authclient/internal/client/api"
	"github.com/Maarij2004/code-tutor-authclient/internal/client/authflow"
	"github.com/Maarij2004/code-tutor-authclient/internal/client/cli"
	"github.com/Maarij2004/code-tutor-authclient/internal/client/config"
	"github.com/Maarij2004/code-tutor-authclient/internal/client/session"
	"github.com/Maarij2004/code-tutor-authclient/internal/client/storage/boltdb"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Конфигурация: defaults ← окружение ← флаги
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	showVersion := flag.Bool("version", false, "Show version information")
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// Получаем команду
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}

	command := args[0]

	ctx := context.Background()

	// Открываем BoltDB storage (хранит только bearer токен)
	boltStorage, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	// Собираем клиент, сессию и контроллер
	apiClient := apiclient.NewClient(cfg.ServerURL, cfg.RequestTimeout)
	sessionStore := session.NewStore(boltStorage)
	controller := authflow.New(apiClient, sessionStore)

	c := cli.New(controller, apiClient, boltStorage, cfg.DevMode)

	// Выполняем команду
	var runErr error
	switch command {
	case "register":
		runErr = c.RunRegister(ctx)
	case "login":
		runErr = c.RunLogin(ctx)
	case "verify":
		runErr = c.RunVerify(ctx)
	case "forgot":
		runErr = c.RunForgot(ctx)
	case "oauth":
		runErr = c.RunOAuth(ctx)
	case "status":
		runErr = c.RunStatus(ctx)
	case "logout":
		runErr = c.RunLogout(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		cli.PrintUsage()
		os.Exit(1)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("CodeTutor Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
