// Package config loads process bootstrap configuration (connection strings,
// ports, the .env file location) the way hyper/cmd/coordinator/main.go does:
// godotenv first (executable dir, then cwd), then plain os.Getenv reads with
// defaults. This is distinct from domain.Settings, which is the editable,
// DomainStore-backed runtime toggle row (design note §9) — Config is read
// once at process start and never re-read mid-operation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the process-wide bootstrap configuration.
type Config struct {
	MongoURI      string
	MongoDatabase string

	HTTPPort string

	AgentTimeout  time.Duration
	UploadTimeout time.Duration

	DropFolderPath string
}

// Load reads .env.ideagraph (trying, in order: an explicit path, the
// executable's directory, the current working directory) and then
// populates Config from the environment. Missing optional values fall back
// to sane defaults; missing required values return an error.
func Load(explicitPath string) (*Config, error) {
	loadEnvFile(explicitPath)

	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		return nil, fmt.Errorf("MONGODB_URI environment variable is required")
	}

	mongoDatabase := os.Getenv("MONGODB_DATABASE")
	if mongoDatabase == "" {
		mongoDatabase = "ideagraph"
	}

	httpPort := os.Getenv("HTTP_PORT")
	if httpPort == "" {
		httpPort = "8080"
	}

	return &Config{
		MongoURI:       mongoURI,
		MongoDatabase:  mongoDatabase,
		HTTPPort:       httpPort,
		AgentTimeout:   30 * time.Second,
		UploadTimeout:  60 * time.Second,
		DropFolderPath: os.Getenv("DROPFOLDER_PATH"),
	}, nil
}

// loadEnvFile mirrors the teacher's .env.hyper discovery: an explicit path
// wins; otherwise try the executable's directory, then the current
// directory. Failure to find a file is not fatal — the process may be
// configured entirely through the real environment.
func loadEnvFile(explicitPath string) {
	if explicitPath != "" {
		_ = godotenv.Overload(explicitPath)
		return
	}

	if executable, err := os.Executable(); err == nil {
		envFile := filepath.Join(filepath.Dir(executable), ".env.ideagraph")
		if err := godotenv.Overload(envFile); err == nil {
			return
		}
	}

	_ = godotenv.Overload(".env.ideagraph")
}
