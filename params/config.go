package params

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Generation struct {
	Clients      int
	Transactions int
	Instruments  int // -1 selects the whole universe
	Cancel       bool
	RoundNumbers bool
	Seed         int64  // 0 derives a seed from the clock
	OutDir       string // where scripts are written
	// Scope decides how long order numbering lives: "file" starts every
	// script at id 0, "process" keeps counting across scripts.
	Scope string
	// MaxTransactions caps a single request; 0 keeps the generator's hard limit.
	MaxTransactions int
}

type Storage struct {
	// Path of the Pebble manifest store. Empty disables manifests.
	Path string
}

type Kafka struct {
	Brokers []string // empty disables publishing
	Topic   string
}

type API struct {
	Addr           string
	AllowedOrigins []string
}

type Log struct {
	File  string // empty logs to stderr only
	Level string
}

type Config struct {
	Generation Generation
	Storage    Storage
	Kafka      Kafka
	API        API
	Log        Log
	// ProfilesPath points at an optional YAML profile file.
	ProfilesPath string
}

func Default() Config {
	return Config{
		Generation: Generation{
			Clients:      1,
			Transactions: 100,
			Instruments:  1,
			Cancel:       true,
			RoundNumbers: true,
			OutDir:       ".",
			Scope:        "file",

			MaxTransactions: 1_000_000,
		},
		Storage: Storage{
			Path: "data/manifests",
		},
		Kafka: Kafka{
			Topic: "scriptgen.scripts",
		},
		API: API{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:3001"},
		},
		Log: Log{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v, ok := envInt("SCRIPTGEN_CLIENTS"); ok {
		cfg.Generation.Clients = v
	}
	if v, ok := envInt("SCRIPTGEN_TRANSACTIONS"); ok {
		cfg.Generation.Transactions = v
	}
	if v := os.Getenv("SCRIPTGEN_INSTRUMENTS"); v != "" {
		if strings.EqualFold(v, "all") {
			cfg.Generation.Instruments = -1
		} else if n, err := strconv.Atoi(v); err == nil {
			cfg.Generation.Instruments = n
		}
	}
	if v, ok := envBool("SCRIPTGEN_CANCEL"); ok {
		cfg.Generation.Cancel = v
	}
	if v, ok := envBool("SCRIPTGEN_ROUND"); ok {
		cfg.Generation.RoundNumbers = v
	}
	if v := os.Getenv("SCRIPTGEN_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Generation.Seed = seed
		}
	}
	cfg.Generation.OutDir = getEnv("SCRIPTGEN_OUT_DIR", cfg.Generation.OutDir)
	cfg.Generation.Scope = getEnv("SCRIPTGEN_SCOPE", cfg.Generation.Scope)
	if v, ok := envInt("SCRIPTGEN_MAX_TRANSACTIONS"); ok {
		cfg.Generation.MaxTransactions = v
	}

	if v, ok := os.LookupEnv("SCRIPTGEN_STORE_PATH"); ok {
		cfg.Storage.Path = v // explicitly empty disables the store
	}
	cfg.ProfilesPath = getEnv("SCRIPTGEN_PROFILES", cfg.ProfilesPath)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitList(brokers)
	}
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)

	cfg.API.Addr = getEnv("API_ADDR", cfg.API.Addr)
	if origins := os.Getenv("API_ALLOWED_ORIGINS"); origins != "" {
		cfg.API.AllowedOrigins = splitList(origins)
	}

	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	return cfg
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// envBool accepts the usual strconv forms plus y/yes/n/no.
func envBool(key string) (bool, bool) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return false, false
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
