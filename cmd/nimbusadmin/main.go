package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"nimbusadmin/internal/api"
	"nimbusadmin/internal/config"
	"nimbusadmin/internal/data"
	"nimbusadmin/internal/logger"
	"nimbusadmin/internal/service"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "reset-password":
			handleResetPassword(os.Args[2:])
			return
		case "help", "--help", "-h":
			printHelp()
			return
		default:
			fmt.Printf("Unknown command: %s\n", os.Args[1])
			printHelp()
			os.Exit(1)
		}
	}

	startServer()
}

func printHelp() {
	fmt.Println("NimbusAdmin - NimbusDB Administration Gateway")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  nimbusadmin                          Start the server")
	fmt.Println("  nimbusadmin reset-password -u <user>   Reset user password (interactive)")
	fmt.Println("  nimbusadmin help                     Show this help")
}

func handleResetPassword(args []string) {
	fs := flag.NewFlagSet("reset-password", flag.ExitOnError)
	username := fs.String("u", "", "Username to reset")
	fs.Parse(args)

	if *username == "" {
		fmt.Println("Usage: nimbusadmin reset-password -u <username>")
		os.Exit(1)
	}

	fmt.Print("New password: ")
	passBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Printf("Failed to read password: %v\n", err)
		os.Exit(1)
	}
	password := string(passBytes)

	fmt.Print("Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Printf("Failed to read password: %v\n", err)
		os.Exit(1)
	}

	if password != string(confirmBytes) {
		fmt.Println("Passwords do not match.")
		os.Exit(1)
	}

	if password == "" {
		fmt.Println("Password cannot be empty.")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := data.InitDB(cfg.DatabasePath)
	if err != nil {
		fmt.Printf("Failed to init database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	authSvc := service.NewAuthService(data.NewUserRepo(db), data.NewSessionRepo(db))
	if err := authSvc.ResetPassword(*username, password); err != nil {
		fmt.Printf("Failed to reset password: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Password for user '%s' has been reset successfully.\n", *username)
}

func startServer() {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	if err := logger.Init("logs"); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info.Println("Starting NimbusAdmin...")

	// 3. Initialize metadata store
	db, err := data.InitDB(cfg.DatabasePath)
	if err != nil {
		logger.Error.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	// 4. Initialize repos
	userRepo := data.NewUserRepo(db)
	sessionRepo := data.NewSessionRepo(db)
	profileRepo := data.NewProfileRepo(db)
	auditRepo := data.NewAuditRepo(db)

	// 5. Initialize services
	cryptoSvc, err := service.NewEncryptionService(cfg.EncryptionKey)
	if err != nil {
		logger.Error.Fatalf("Failed to init crypto service: %v", err)
	}

	authSvc := service.NewAuthService(userRepo, sessionRepo)
	if err := authSvc.Bootstrap(cfg.BootstrapUser, cfg.BootstrapPassword); err != nil {
		logger.Error.Fatalf("Failed to bootstrap default account: %v", err)
	}

	gateway := service.NewCommandGateway(profileRepo, auditRepo, cryptoSvc)
	settings := service.NewSettingsTranslator(gateway)

	// 6. Start Server
	handler := api.NewHandler(authSvc, gateway, settings, profileRepo, auditRepo, cryptoSvc, cfg.CORSOrigins)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler.Routes(),
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info.Printf("Server listening on port %d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error.Fatalf("Server startup failed: %v", err)
		}
	}()

	<-stop
	logger.Info.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error.Printf("Server shutdown error: %v", err)
	}
	logger.Info.Println("Server stopped")
}
