package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address                   string
		DebugHost                 string
		Host                      string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		AllowOrigins              []string
	}

	BackendConfig struct {
		BaseURL string
		Timeout time.Duration
	}

	CacheConfig struct {
		TTL             time.Duration
		CleanupInterval time.Duration
	}

	StorageConfig struct {
		Endpoint  string
		AccessKey string
		SecretKey string
		Bucket    string
		UseSSL    bool
	}

	SessionConfig struct {
		Path string
	}

	// SeedConfig fills the in-memory backend on start.
	SeedConfig struct {
		SampleData    bool
		AdminName     string
		AdminUsername string
		AdminPassword string
	}

	Config struct {
		Env          string
		Build        string
		AppName      string
		Debug        bool
		TestMode     bool
		SecretKey    string
		RollbarToken string

		Server  ServerConfig
		Backend BackendConfig
		Cache   CacheConfig
		Storage StorageConfig
		Session SessionConfig
		Seed    SeedConfig
	}
)

// NewConfig reads the configuration from the environment, after loading config/.env.<env> if it exists.
// ENV selects the environment: DEV (default), TEST, QA or PROD. Variables are read with the environment as prefix,
// e.g. DEV_BACKEND_BASEURL.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Horarios")
	v.SetDefault("secretKey", "c9#x!2m@v$8q^l4k&z0p*w7r(e5t)y3u")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 8*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 24*time.Hour)
	v.SetDefault("server.allowOrigins", []string{"*"})
	v.SetDefault("backend.baseURL", "http://127.0.0.1:8000/api")
	v.SetDefault("backend.timeout", 15*time.Second)
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("cache.cleanupInterval", 20*time.Minute)
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.accessKey", "minioadmin")
	v.SetDefault("storage.secretKey", "minioadmin")
	v.SetDefault("storage.bucket", "horarios")
	v.SetDefault("storage.useSSL", false)
	v.SetDefault("session.path", defaultSessionPath())
	v.SetDefault("seed.sampleData", env == "DEV")
	v.SetDefault("seed.adminName", "Administrador")
	v.SetDefault("seed.adminUsername", "admin")
	v.SetDefault("seed.adminPassword", "")

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{
		Env:          env,
		Build:        v.GetString("build"),
		AppName:      v.GetString("appName"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Address:                   v.GetString("server.address"),
			DebugHost:                 v.GetString("server.debugHost"),
			Host:                      v.GetString("server.host"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			AllowOrigins:              v.GetStringSlice("server.allowOrigins"),
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(v.GetString("backend.baseURL"), "/"),
			Timeout: v.GetDuration("backend.timeout"),
		},
		Cache: CacheConfig{
			TTL:             v.GetDuration("cache.ttl"),
			CleanupInterval: v.GetDuration("cache.cleanupInterval"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("storage.endpoint"),
			AccessKey: v.GetString("storage.accessKey"),
			SecretKey: v.GetString("storage.secretKey"),
			Bucket:    v.GetString("storage.bucket"),
			UseSSL:    v.GetBool("storage.useSSL"),
		},
		Session: SessionConfig{
			Path: v.GetString("session.path"),
		},
		Seed: SeedConfig{
			SampleData:    v.GetBool("seed.sampleData"),
			AdminName:     v.GetString("seed.adminName"),
			AdminUsername: v.GetString("seed.adminUsername"),
			AdminPassword: v.GetString("seed.adminPassword"),
		},
	}
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "horarios", "session.db")
}
