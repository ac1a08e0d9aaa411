package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string

	OracleBaseURL   string
	OracleAPIKey    string
	OracleModel     string
	OracleTimeoutMs int

	SearchBaseURL   string
	SearchToken     string
	SearchTimeoutMs int
	SearchAttempts  int
	SearchBackoffMs int

	MatchOKThreshold  float64
	MatchGapThreshold float64
	FuzzyScoreFloor   float64

	ReportMinProbability int

	ClassifyMaxWords       int
	ClassifyMultiOrderList []string
	ClassifyVagueList      []string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "metiz.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		OracleBaseURL:   getEnv("ORACLE_BASE_URL", "https://api.openai.com/v1"),
		OracleAPIKey:    getEnv("ORACLE_API_KEY", ""),
		OracleModel:     getEnv("ORACLE_MODEL", "gpt-4o-mini"),
		OracleTimeoutMs: getEnvInt("ORACLE_TIMEOUT_MS", 30000),

		SearchBaseURL:   getEnv("SEARCH_BASE_URL", ""),
		SearchToken:     getEnv("SEARCH_TOKEN", ""),
		SearchTimeoutMs: getEnvInt("SEARCH_TIMEOUT_MS", 10000),
		SearchAttempts:  getEnvInt("SEARCH_ATTEMPTS", 3),
		SearchBackoffMs: getEnvInt("SEARCH_BACKOFF_MS", 500),

		MatchOKThreshold:  getEnvFloat("MATCH_OK_THRESHOLD", 0.75),
		MatchGapThreshold: getEnvFloat("MATCH_GAP_THRESHOLD", 0.10),
		FuzzyScoreFloor:   getEnvFloat("FUZZY_SCORE_FLOOR", 0.10),

		ReportMinProbability: getEnvInt("REPORT_MIN_PROBABILITY", 0),

		ClassifyMaxWords:       getEnvInt("CLASSIFY_MAX_WORDS", 8),
		ClassifyMultiOrderList: getEnvList("CLASSIFY_MULTI_ORDER_WORDS", defaultMultiOrderWords),
		ClassifyVagueList:      getEnvList("CLASSIFY_VAGUE_WORDS", defaultVagueWords),
	}

	return cfg, nil
}

// The trigger-word lists are a living vocabulary; defaults ship here and any
// deployment can override them through the environment.
var defaultMultiOrderWords = []string{
	"нужно", "требуется", "заказать",
	"разных", "различных", "несколько", "много",
	"комплект", "набор", "партия",
}

var defaultVagueWords = []string{
	"что-то", "какой-то", "подходящий", "подходящая",
	"для крепления", "для сборки", "мебельный", "мебельная",
	"с головкой", "с резьбой", "специальный", "специальная",
	"универсальный", "универсальная", "конструкционный",
	"грибком", "грибковая", "грибковый", "тарельчатый",
	"потай", "полупотай", "под ключ",
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := getEnv(key, "")
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
