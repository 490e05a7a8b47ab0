package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Media backend selectors.
const (
	MediaBackendMinio = "minio"
	MediaBackendGCS   = "gcs"
)

type Config struct {
	ServerPort int
	Mongo      MongoConfig
	Media      MediaConfig
}

type MongoConfig struct {
	URI      string
	Database string
}

// MediaConfig selects and configures the object-storage backend that holds
// uploaded story images.
type MediaConfig struct {
	Backend string
	// PublicBaseURL is the externally reachable base of this server, used
	// to build image URLs handed back to clients.
	PublicBaseURL string
	// AssetsDir holds the fixed placeholder assets served under /assets.
	AssetsDir string
	Minio     MinioConfig
	GCS       GCSConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	port := getEnvInt("SERVER_PORT", 0)
	if port == 0 {
		port = getEnvInt("PORT", 8000)
	}

	return Config{
		ServerPort: port,
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", ""),
			Database: getEnv("MONGO_DB", "lovestory"),
		},
		Media: MediaConfig{
			Backend:       getEnv("MEDIA_BACKEND", MediaBackendMinio),
			PublicBaseURL: getEnv("PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%d", port)),
			AssetsDir:     getEnv("ASSETS_DIR", "./assets"),
			Minio: MinioConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", "lovestory-uploads"),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			GCS: GCSConfig{
				Bucket:          getEnv("GCS_BUCKET", ""),
				ProjectID:       getEnv("GCS_PROJECT_ID", ""),
				CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
			},
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		return value == "true" || value == "1"
	}
	return defaultValue
}
