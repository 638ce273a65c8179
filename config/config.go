package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	MongoURI         string
	DBName           string
	JWTSecret        string
	JWTExpiry        int // in hours
	ClientURL        string
	UploadDir        string
	MaxMessageLength int
	MaxUploadBytes   int64
}

// Load reads configuration from the environment, with a .env file as
// fallback for local development.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	return Config{
		Port:             getEnv("PORT", "5000"),
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:           getEnv("DB_NAME", "alumni_portal"),
		JWTSecret:        getEnv("JWT_SECRET", "dev-super-secret-change-me"),
		JWTExpiry:        getEnvAsInt("JWT_EXPIRY", 168),
		ClientURL:        getEnv("CLIENT_URL", "http://localhost:3000"),
		UploadDir:        getEnv("UPLOAD_DIR", "uploads"),
		MaxMessageLength: getEnvAsInt("MAX_MESSAGE_LENGTH", 2000),
		MaxUploadBytes:   int64(getEnvAsInt("MAX_UPLOAD_MB", 25)) << 20,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
