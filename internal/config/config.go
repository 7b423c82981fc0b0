package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by QUORUM_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("QUORUM_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// AlertSink returns the configured alert sink for adaptation events.
// Defaults to "log" if not set. Valid values: log, webhook, mock.
func AlertSink() string {
	s := os.Getenv("ALERT_SINK")
	if s == "" {
		return "log"
	}
	return s
}

func AlertWebhookURL() string {
	return os.Getenv("ALERT_WEBHOOK_URL")
}

// ProviderURL returns the endpoint of the upstream prediction provider that
// receives adjustment requests. Empty disables the integration.
func ProviderURL() string {
	return os.Getenv("PREDICTION_PROVIDER_URL")
}

// CouncilSize returns the fixed council size K. Defaults to 5.
func CouncilSize() int {
	k, err := strconv.Atoi(os.Getenv("COUNCIL_SIZE"))
	if err != nil || k <= 0 {
		return 5
	}
	return k
}

// CouncilValidity returns how long a council snapshot remains current.
// Defaults to 24h.
func CouncilValidity() time.Duration {
	d, err := time.ParseDuration(os.Getenv("COUNCIL_VALIDITY"))
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// MinSampleSize returns the resolved-prediction count required before a
// provisional expert is promoted to active. Defaults to 20.
func MinSampleSize() int {
	n, err := strconv.Atoi(os.Getenv("MIN_SAMPLE_SIZE"))
	if err != nil || n <= 0 {
		return 20
	}
	return n
}

// EmergencyAccuracy returns the accuracy floor below which the adaptation
// engine emits an emergency event. Defaults to 0.5.
func EmergencyAccuracy() float64 {
	return floatEnv("EMERGENCY_ACCURACY", 0.5)
}

// CriticalCalibrationGap returns the calibration gap above which the
// adaptation engine emits a critical event. Defaults to 0.2.
func CriticalCalibrationGap() float64 {
	return floatEnv("CRITICAL_CALIBRATION_GAP", 0.2)
}

// SuspendAccuracy returns the accuracy floor below which an expert is
// suspended outright. Defaults to 0.35.
func SuspendAccuracy() float64 {
	return floatEnv("SUSPEND_ACCURACY", 0.35)
}

// SuspensionCooldown returns how long a suspended expert sits out before
// reinstatement as provisional. Defaults to 168h (7 days).
func SuspensionCooldown() time.Duration {
	d, err := time.ParseDuration(os.Getenv("SUSPENSION_COOLDOWN"))
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// MemoryAgeThreshold returns the age past which memories start decaying.
// Defaults to 720h (30 days).
func MemoryAgeThreshold() time.Duration {
	d, err := time.ParseDuration(os.Getenv("MEMORY_AGE_THRESHOLD"))
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// MemoryCapPerExpert returns the consolidation cap. Defaults to 200.
func MemoryCapPerExpert() int {
	n, err := strconv.Atoi(os.Getenv("MEMORY_CAP_PER_EXPERT"))
	if err != nil || n <= 0 {
		return 200
	}
	return n
}

// ScoreTolerance returns the exact-score tolerance in points. Defaults to 3.
func ScoreTolerance() float64 {
	return floatEnv("SCORE_TOLERANCE", 3)
}

// MarginTolerance returns the margin-of-victory tolerance in points.
// Defaults to 7.
func MarginTolerance() float64 {
	return floatEnv("MARGIN_TOLERANCE", 7)
}

// YardageTolerancePct returns the fractional yardage tolerance. Defaults to 0.20.
func YardageTolerancePct() float64 {
	return floatEnv("YARDAGE_TOLERANCE_PCT", 0.20)
}

// YardageToleranceAbs returns the absolute yardage tolerance. Defaults to 25.
func YardageToleranceAbs() float64 {
	return floatEnv("YARDAGE_TOLERANCE_ABS", 25)
}

// CountingTolerance returns the counting-stat tolerance. Defaults to 1.
func CountingTolerance() float64 {
	return floatEnv("COUNTING_TOLERANCE", 1)
}

// RateLimitRPS returns requests per second limit. Defaults to 100.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting. Defaults to 20.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

func floatEnv(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return def
	}
	return v
}
