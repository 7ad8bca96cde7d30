package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr        string
	LogLevel        string
	CACertPath      string
	TokenAudience   string
	TokenIssuer     string
	PolicyPath      string
	AuditDBPath     string
	AdminTokenPath  string
	ShutdownTimeout time.Duration
}

func LoadConfig() (Config, error) {
	var cfg Config

	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", "0.0.0.0:8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")

	cfg.CACertPath = os.Getenv("CA_CERT_PATH")
	cfg.TokenAudience = os.Getenv("TOKEN_AUDIENCE")
	cfg.TokenIssuer = os.Getenv("TOKEN_ISSUER")
	cfg.PolicyPath = os.Getenv("POLICY_PATH")
	cfg.AuditDBPath = os.Getenv("AUDIT_DB_PATH")
	cfg.AdminTokenPath = os.Getenv("ADMIN_TOKEN_PATH")

	secs, err := strconv.Atoi(getenvDefault("SHUTDOWN_TIMEOUT", "10"))
	if err != nil || secs <= 0 {
		secs = 10
	}
	cfg.ShutdownTimeout = time.Duration(secs) * time.Second

	return cfg, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
