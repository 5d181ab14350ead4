package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/adbreak/server/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	catalogPath = configVar[string]{
		envKey:       "SERVER_CATALOG_PATH",
		flagKey:      "catalog-path",
		defaultValue: "",
	}
	sessionTTL = configVar[int]{
		envKey:       "SERVER_SESSION_TTL_SECONDS",
		flagKey:      "session-ttl-seconds",
		defaultValue: 300,
	}
	adRequestDelay = configVar[int]{
		envKey:       "SERVER_AD_REQUEST_DELAY_MS",
		flagKey:      "ad-request-delay-ms",
		defaultValue: 200,
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.String(catalogPath.flagKey, catalogPath.defaultValue, "Catalog file path (empty for the built-in catalog)")
	pflag.Int(sessionTTL.flagKey, sessionTTL.defaultValue, "Idle session lifetime in seconds")
	pflag.Int(adRequestDelay.flagKey, adRequestDelay.defaultValue, "Simulated ad-decision delay in milliseconds")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(catalogPath.flagKey, catalogPath.envKey)
	viper.BindEnv(sessionTTL.flagKey, sessionTTL.envKey)
	viper.BindEnv(adRequestDelay.flagKey, adRequestDelay.envKey)

	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(catalogPath.flagKey, catalogPath.defaultValue)
	viper.SetDefault(sessionTTL.flagKey, sessionTTL.defaultValue)
	viper.SetDefault(adRequestDelay.flagKey, adRequestDelay.defaultValue)

	config := &app.AppConfig{
		Host:              viper.GetString(host.flagKey),
		Port:              viper.GetInt(port.flagKey),
		LogLevel:          viper.GetString(logLevel.flagKey),
		CatalogPath:       viper.GetString(catalogPath.flagKey),
		SessionTTLSeconds: viper.GetInt(sessionTTL.flagKey),
		AdRequestDelayMs:  viper.GetInt(adRequestDelay.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
