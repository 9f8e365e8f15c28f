package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string
		Debug            bool
		TestMode         bool
		AppName          string
		Build            string
		WorkDir          string
		FrontendBaseURL  string
		Currency         string
		DefaultFromEmail string
		SendgridAPIKey   string
		RollbarToken     string
		CloudinaryURL    string

		Server ServerConfig
		Mongo  MongoConfig
		Clerk  ClerkConfig
		Stripe StripeConfig
	}

	ServerConfig struct {
		Host            string
		Port            int
		ShutdownTimeout time.Duration
	}

	MongoConfig struct {
		URI     string
		Name    string
		Timeout time.Duration
	}

	ClerkConfig struct {
		SecretKey     string
		WebhookSecret string
	}

	StripeConfig struct {
		SecretKey     string
		WebhookSecret string
	}
)

func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewConfig loads the app configuration from the environment;
// a config/.env.{env} file is loaded first if it exists.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Soko")
	conf.SetDefault("frontendBaseURL", "http://localhost:5173")
	conf.SetDefault("currency", "usd")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("serverHost", "")
	conf.SetDefault("serverPort", 8000)
	conf.SetDefault("serverShutdownTimeout", 20*time.Second)
	conf.SetDefault("mongoURI", "mongodb://localhost:27017")
	conf.SetDefault("mongoName", "soko")
	conf.SetDefault("mongoTimeout", 10*time.Second)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Env:              env,
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		AppName:          conf.GetString("appName"),
		Build:            conf.GetString("build"),
		WorkDir:          Getwd(),
		FrontendBaseURL:  conf.GetString("frontendBaseURL"),
		Currency:         conf.GetString("currency"),
		DefaultFromEmail: conf.GetString("defaultFromEmail"),
		SendgridAPIKey:   conf.GetString("sendgridApiKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		CloudinaryURL:    conf.GetString("cloudinaryUrl"),
		Server: ServerConfig{
			Host:            conf.GetString("serverHost"),
			Port:            conf.GetInt("serverPort"),
			ShutdownTimeout: conf.GetDuration("serverShutdownTimeout"),
		},
		Mongo: MongoConfig{
			URI:     conf.GetString("mongoURI"),
			Name:    conf.GetString("mongoName"),
			Timeout: conf.GetDuration("mongoTimeout"),
		},
		Clerk: ClerkConfig{
			SecretKey:     conf.GetString("clerkSecretKey"),
			WebhookSecret: conf.GetString("clerkWebhookSecret"),
		},
		Stripe: StripeConfig{
			SecretKey:     conf.GetString("stripeSecretKey"),
			WebhookSecret: conf.GetString("stripeWebhookSecret"),
		},
	}
}
