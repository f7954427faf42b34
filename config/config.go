// Package config centralises runtime configuration for the tip engine server.
//
// Precedence, lowest first: built-in defaults, environment (optionally from a
// .env file in the working directory), command-line flags.
package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/warp/tip-engine/tips"
)

// Config holds everything the server needs at startup.
type Config struct {
	Logger         *log.Logger
	Port           int
	DBPath         string
	CORSOrigins    []string
	CurrencyPlaces int32
	CashPolicy     tips.CashPolicy
}

// Engine returns an engine configured with the currency places and cash policy.
func (c *Config) Engine() *tips.Engine {
	e := tips.NewEngine()
	e.Places = c.CurrencyPlaces
	e.CashPolicy = c.CashPolicy
	return e
}

// Load reads .env, the environment and then args (without the program name).
func Load(args []string) (*Config, error) {
	logger := log.New(os.Stderr, "[Config] ", log.LstdFlags)
	if err := godotenv.Load(); err == nil {
		logger.Println("Loaded .env")
	}

	port, err := strconv.Atoi(getEnvOrDefault("TIPS_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("TIPS_PORT: %w", err)
	}
	places, err := strconv.Atoi(getEnvOrDefault("TIPS_CURRENCY_PLACES", strconv.Itoa(int(tips.DefaultCurrencyPlaces))))
	if err != nil {
		return nil, fmt.Errorf("TIPS_CURRENCY_PLACES: %w", err)
	}
	if places < 0 || places > 6 {
		return nil, fmt.Errorf("TIPS_CURRENCY_PLACES: %d out of range 0-6", places)
	}
	policyName := getEnvOrDefault("TIPS_CASH_POLICY", tips.DayRoster{}.Name())
	policy, ok := tips.CashPolicyByName(policyName)
	if !ok {
		return nil, fmt.Errorf("TIPS_CASH_POLICY: unknown policy %q", policyName)
	}

	cfg := &Config{
		Logger:         log.New(os.Stderr, "", log.LstdFlags),
		DBPath:         getEnvOrDefault("TIPS_DB_PATH", "tips.db"),
		CORSOrigins:    splitList(getEnvOrDefault("TIPS_CORS_ORIGINS", "http://localhost:5173,http://localhost:8080")),
		CurrencyPlaces: int32(places),
		CashPolicy:     policy,
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", port, "HTTP server port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, `SQLite database path (":memory:" for in-memory)`)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	logger.Printf("port=%d db=%s places=%d cash_policy=%s", cfg.Port, cfg.DBPath, cfg.CurrencyPlaces, cfg.CashPolicy.Name())
	return cfg, nil
}

func getEnvOrDefault(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
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
