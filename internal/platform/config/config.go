package config

import (
	"log"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration. It is constructed once at startup
// and passed by reference into repository and service constructors.
type Config struct {
	DataDir        string
	RequestsFile   string
	UsersFile      string
	ResetCodesFile string
	AttachmentsDir string

	LockTimeout      time.Duration
	LockPollInterval time.Duration

	ResetCodeTTL    time.Duration
	ResetCodeLength int

	SMTPHost string
	SMTPPort string
	SMTPFrom string

	IsProduction bool
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("DATA_DIR", "data")
	viper.SetDefault("REQUESTS_FILE", "requests.json")
	viper.SetDefault("USERS_FILE", "users.json")
	viper.SetDefault("RESET_CODES_FILE", "reset_codes.json")
	viper.SetDefault("ATTACHMENTS_DIR", "reimbursements")
	viper.SetDefault("LOCK_TIMEOUT", "5s")
	viper.SetDefault("LOCK_POLL_INTERVAL", "50ms")
	viper.SetDefault("RESET_CODE_TTL", "5m")
	viper.SetDefault("RESET_CODE_LENGTH", 6)
	viper.SetDefault("SMTP_HOST", "")
	viper.SetDefault("SMTP_PORT", "25")
	viper.SetDefault("SMTP_FROM", "noreply@localhost")
	viper.SetDefault("IS_PRODUCTION", false)

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DataDir = viper.GetString("DATA_DIR")
	cfg.RequestsFile = filepath.Join(cfg.DataDir, viper.GetString("REQUESTS_FILE"))
	cfg.UsersFile = filepath.Join(cfg.DataDir, viper.GetString("USERS_FILE"))
	cfg.ResetCodesFile = filepath.Join(cfg.DataDir, viper.GetString("RESET_CODES_FILE"))
	cfg.AttachmentsDir = filepath.Join(cfg.DataDir, viper.GetString("ATTACHMENTS_DIR"))

	lockTimeoutStr := viper.GetString("LOCK_TIMEOUT")
	lockTimeout, err := time.ParseDuration(lockTimeoutStr)
	if err != nil {
		lockTimeout = 5 * time.Second
		log.Printf("Warning: Invalid value for LOCK_TIMEOUT ('%s'). Defaulting to %s.\n", lockTimeoutStr, lockTimeout)
	}
	cfg.LockTimeout = lockTimeout

	lockPollStr := viper.GetString("LOCK_POLL_INTERVAL")
	lockPoll, err := time.ParseDuration(lockPollStr)
	if err != nil {
		lockPoll = 50 * time.Millisecond
		log.Printf("Warning: Invalid value for LOCK_POLL_INTERVAL ('%s'). Defaulting to %s.\n", lockPollStr, lockPoll)
	}
	cfg.LockPollInterval = lockPoll

	resetTTLStr := viper.GetString("RESET_CODE_TTL")
	resetTTL, err := time.ParseDuration(resetTTLStr)
	if err != nil {
		resetTTL = 5 * time.Minute
		log.Printf("Warning: Invalid value for RESET_CODE_TTL ('%s'). Defaulting to %s.\n", resetTTLStr, resetTTL)
	}
	cfg.ResetCodeTTL = resetTTL

	cfg.ResetCodeLength = viper.GetInt("RESET_CODE_LENGTH")
	if cfg.ResetCodeLength <= 0 {
		cfg.ResetCodeLength = 6
	}

	cfg.SMTPHost = viper.GetString("SMTP_HOST")
	cfg.SMTPPort = viper.GetString("SMTP_PORT")
	cfg.SMTPFrom = viper.GetString("SMTP_FROM")
	if cfg.SMTPHost == "" {
		log.Println("Warning: SMTP_HOST not set. Reset codes will be surfaced to the operator instead of mailed.")
	}

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")

	return cfg, nil
}
