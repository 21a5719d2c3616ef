package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string

	// Payment processor
	PayProcBaseURL string
	PayProcAPIKey  string

	// AMQP broker for the event side-channel; empty disables publishing.
	AMQPURL string

	JWTSecret string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:         os.Getenv("DB_HOST"),
		DBUser:         os.Getenv("DB_USER"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         os.Getenv("DB_NAME"),
		DBPort:         os.Getenv("DB_PORT"),
		AppPort:        os.Getenv("APP_PORT"),
		AppEnv:         os.Getenv("APP_ENV"),
		PayProcBaseURL: os.Getenv("PAYPROC_BASE_URL"),
		PayProcAPIKey:  os.Getenv("PAYPROC_API_KEY"),
		AMQPURL:        os.Getenv("AMQP_URL"),
		JWTSecret:      os.Getenv("SECRET_KEY"),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}
