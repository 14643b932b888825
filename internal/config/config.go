package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort     string
	ClientOrigin string
	OllamaURL    string
	TutorModel   string
	GraderModel  string
	DatabaseURL  string
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		HTTPPort:     getEnv("PORT", "4000"),
		ClientOrigin: getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		OllamaURL:    getEnv("OLLAMA_URL", "http://localhost:11434"),
		TutorModel:   getEnv("TUTOR_MODEL", "qwen2.5:7b-instruct"),
		GraderModel:  getEnv("GRADER_MODEL", "qwen2.5:3b-instruct"),
		DatabaseURL:  getEnv("DATABASE_URL", "fluentia.db"),
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
