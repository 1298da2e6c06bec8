package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              int
	DatabasePath      string
	EncryptionKey     string
	BootstrapUser     string
	BootstrapPassword string
	CORSOrigins       []string
}

// Load reads configuration from the environment, optionally seeded from a
// .env file. A missing encryption key is generated and written back to .env
// so profile passwords stay decryptable across restarts.
func Load() (*Config, error) {
	_ = godotenv.Load()

	key := os.Getenv("NIMBUS_ADMIN_KEY")
	if len(key) < 32 {
		fmt.Println("NIMBUS_ADMIN_KEY not found or too short. Generating a new secure key...")
		newKey, err := generateRandomKey(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}

		if err := saveKeyToEnv(newKey); err != nil {
			fmt.Printf("Warning: failed to save generated key to .env: %v\n", err)
		} else {
			fmt.Println("New NIMBUS_ADMIN_KEY saved to .env file.")
		}
		key = newKey
	}

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}

	dbPath := os.Getenv("NIMBUS_ADMIN_DB")
	if dbPath == "" {
		dbPath = "nimbus_admin.db"
	}

	bootstrapUser := os.Getenv("NIMBUS_BOOTSTRAP_USER")
	if bootstrapUser == "" {
		bootstrapUser = "admin"
	}
	bootstrapPassword := os.Getenv("NIMBUS_BOOTSTRAP_PASSWORD")
	if bootstrapPassword == "" {
		bootstrapPassword = "admin"
	}

	origins := []string{"*"}
	if originsStr := os.Getenv("CORS_ORIGINS"); originsStr != "" {
		origins = strings.Split(originsStr, ",")
	}

	return &Config{
		Port:              port,
		DatabasePath:      dbPath,
		EncryptionKey:     key,
		BootstrapUser:     bootstrapUser,
		BootstrapPassword: bootstrapPassword,
		CORSOrigins:       origins,
	}, nil
}

func generateRandomKey(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func saveKeyToEnv(key string) error {
	filename := ".env"
	content, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return os.WriteFile(filename, []byte(fmt.Sprintf("NIMBUS_ADMIN_KEY=%s\n", key)), 0600)
	} else if err != nil {
		return err
	}

	lines := strings.Split(string(content), "\n")
	found := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "NIMBUS_ADMIN_KEY=") {
			lines[i] = "NIMBUS_ADMIN_KEY=" + key
			found = true
		}
	}
	if !found {
		lines = append(lines, "NIMBUS_ADMIN_KEY="+key)
	}

	return os.WriteFile(filename, []byte(strings.Join(lines, "\n")), 0600)
}
