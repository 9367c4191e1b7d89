package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/jam/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	queueLimit = configVar[int]{
		envKey:       "SERVER_QUEUE_LIMIT",
		flagKey:      "queue-limit",
		defaultValue: 100,
	}
	roomIdleTTL = configVar[time.Duration]{
		envKey:       "SERVER_ROOM_IDLE_TTL",
		flagKey:      "room-idle-ttl",
		defaultValue: 0,
	}
	playLagTolerance = configVar[float64]{
		envKey:       "SYNC_PLAY_LAG_TOLERANCE",
		flagKey:      "play-lag-tolerance",
		defaultValue: 2.0,
	}
	heartbeatDeadband = configVar[float64]{
		envKey:       "SYNC_HEARTBEAT_DEADBAND",
		flagKey:      "heartbeat-deadband",
		defaultValue: 1.0,
	}
	heartbeatRogueThreshold = configVar[float64]{
		envKey:       "SYNC_HEARTBEAT_ROGUE_THRESHOLD",
		flagKey:      "heartbeat-rogue-threshold",
		defaultValue: 6.0,
	}
	trackLookupURL = configVar[string]{
		envKey:       "TRACK_LOOKUP_URL",
		flagKey:      "track-lookup-url",
		defaultValue: "https://www.youtube.com/oembed",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Int(queueLimit.flagKey, queueLimit.defaultValue, "Maximum number of tracks in a room queue, 0 for no limit")
	pflag.Duration(roomIdleTTL.flagKey, roomIdleTTL.defaultValue, "How long an empty room is kept, 0 keeps rooms forever")
	pflag.Float64(playLagTolerance.flagKey, playLagTolerance.defaultValue, "Seconds a play report may trail a playing room")
	pflag.Float64(heartbeatDeadband.flagKey, heartbeatDeadband.defaultValue, "Heartbeats ahead of the room by at most this many seconds are ignored")
	pflag.Float64(heartbeatRogueThreshold.flagKey, heartbeatRogueThreshold.defaultValue, "Heartbeats ahead of the room by this many seconds are rejected")
	pflag.String(trackLookupURL.flagKey, trackLookupURL.defaultValue, "oEmbed endpoint for track metadata, empty disables lookup")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host, empty disables likes")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(queueLimit.flagKey, queueLimit.envKey)
	viper.BindEnv(roomIdleTTL.flagKey, roomIdleTTL.envKey)
	viper.BindEnv(playLagTolerance.flagKey, playLagTolerance.envKey)
	viper.BindEnv(heartbeatDeadband.flagKey, heartbeatDeadband.envKey)
	viper.BindEnv(heartbeatRogueThreshold.flagKey, heartbeatRogueThreshold.envKey)
	viper.BindEnv(trackLookupURL.flagKey, trackLookupURL.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)

	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(queueLimit.flagKey, queueLimit.defaultValue)
	viper.SetDefault(roomIdleTTL.flagKey, roomIdleTTL.defaultValue)
	viper.SetDefault(playLagTolerance.flagKey, playLagTolerance.defaultValue)
	viper.SetDefault(heartbeatDeadband.flagKey, heartbeatDeadband.defaultValue)
	viper.SetDefault(heartbeatRogueThreshold.flagKey, heartbeatRogueThreshold.defaultValue)
	viper.SetDefault(trackLookupURL.flagKey, trackLookupURL.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)

	return &app.AppConfig{
		Host:                    viper.GetString(host.flagKey),
		Port:                    viper.GetInt(port.flagKey),
		LogLevel:                viper.GetString(logLevel.flagKey),
		QueueLimit:              viper.GetInt(queueLimit.flagKey),
		RoomIdleTTL:             viper.GetDuration(roomIdleTTL.flagKey),
		PlayLagTolerance:        viper.GetFloat64(playLagTolerance.flagKey),
		HeartbeatDeadband:       viper.GetFloat64(heartbeatDeadband.flagKey),
		HeartbeatRogueThreshold: viper.GetFloat64(heartbeatRogueThreshold.flagKey),
		TrackLookupURL:          viper.GetString(trackLookupURL.flagKey),
		RedisPort:               viper.GetInt(redisPort.flagKey),
		RedisHost:               viper.GetString(redisHost.flagKey),
		RedisPassword:           viper.GetString(redisPassword.flagKey),
	}
}

func main() {
	// a missing .env is fine, the environment and flags still apply
	_ = godotenv.Load()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	if err := app.Run(context.Background(), appConfig); err != nil {
		log.Fatal(err)
	}
}
