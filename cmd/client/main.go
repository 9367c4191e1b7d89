package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/jam/internal/client"
	"github.com/sharetube/jam/internal/domain"
	"github.com/sharetube/jam/pkg/ctxlogger"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	serverURL = configVar[string]{
		envKey:       "CLIENT_SERVER_URL",
		flagKey:      "server-url",
		defaultValue: "ws://localhost:8080/api/v1/ws",
	}
	roomKey = configVar[string]{
		envKey:       "CLIENT_ROOM",
		flagKey:      "room",
		defaultValue: "lobby",
	}
	displayName = configVar[string]{
		envKey:       "CLIENT_NAME",
		flagKey:      "name",
		defaultValue: "guest",
	}
	logLevel = configVar[string]{
		envKey:       "CLIENT_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	tickInterval = configVar[time.Duration]{
		envKey:       "SYNC_TICK_INTERVAL",
		flagKey:      "tick-interval",
		defaultValue: 500 * time.Millisecond,
	}
	heartbeatEvery = configVar[int]{
		envKey:       "SYNC_HEARTBEAT_EVERY",
		flagKey:      "heartbeat-every",
		defaultValue: 4,
	}
	seekThreshold = configVar[float64]{
		envKey:       "SYNC_SEEK_THRESHOLD",
		flagKey:      "seek-threshold",
		defaultValue: 1.5,
	}
	hardSyncThreshold = configVar[float64]{
		envKey:       "SYNC_HARD_SYNC_THRESHOLD",
		flagKey:      "hard-sync-threshold",
		defaultValue: 2.5,
	}
	driftDeadband = configVar[float64]{
		envKey:       "SYNC_DRIFT_DEADBAND",
		flagKey:      "drift-deadband",
		defaultValue: 0.15,
	}
	trackLength = configVar[float64]{
		envKey:       "CLIENT_TRACK_LENGTH",
		flagKey:      "track-length",
		defaultValue: 240,
	}
)

type clientConfig struct {
	ServerURL   string
	RoomKey     string
	DisplayName string
	LogLevel    slog.Level
	TrackLength float64
	Sync        client.Config
}

func loadClientConfig() (*clientConfig, error) {
	pflag.String(serverURL.flagKey, serverURL.defaultValue, "Websocket endpoint of the room server")
	pflag.String(roomKey.flagKey, roomKey.defaultValue, "Room to join")
	pflag.String(displayName.flagKey, displayName.defaultValue, "Display name in the room")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Duration(tickInterval.flagKey, tickInterval.defaultValue, "Sync loop period")
	pflag.Int(heartbeatEvery.flagKey, heartbeatEvery.defaultValue, "Ticks between heartbeats")
	pflag.Float64(seekThreshold.flagKey, seekThreshold.defaultValue, "Position jump between ticks reported as a seek")
	pflag.Float64(hardSyncThreshold.flagKey, hardSyncThreshold.defaultValue, "Drift corrected by seeking")
	pflag.Float64(driftDeadband.flagKey, driftDeadband.defaultValue, "Drift tolerated at normal rate")
	pflag.Float64(trackLength.flagKey, trackLength.defaultValue, "Length of every simulated track in seconds")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(serverURL.flagKey, serverURL.envKey)
	viper.BindEnv(roomKey.flagKey, roomKey.envKey)
	viper.BindEnv(displayName.flagKey, displayName.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(tickInterval.flagKey, tickInterval.envKey)
	viper.BindEnv(heartbeatEvery.flagKey, heartbeatEvery.envKey)
	viper.BindEnv(seekThreshold.flagKey, seekThreshold.envKey)
	viper.BindEnv(hardSyncThreshold.flagKey, hardSyncThreshold.envKey)
	viper.BindEnv(driftDeadband.flagKey, driftDeadband.envKey)
	viper.BindEnv(trackLength.flagKey, trackLength.envKey)

	viper.SetDefault(serverURL.flagKey, serverURL.defaultValue)
	viper.SetDefault(roomKey.flagKey, roomKey.defaultValue)
	viper.SetDefault(displayName.flagKey, displayName.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(tickInterval.flagKey, tickInterval.defaultValue)
	viper.SetDefault(heartbeatEvery.flagKey, heartbeatEvery.defaultValue)
	viper.SetDefault(seekThreshold.flagKey, seekThreshold.defaultValue)
	viper.SetDefault(hardSyncThreshold.flagKey, hardSyncThreshold.defaultValue)
	viper.SetDefault(driftDeadband.flagKey, driftDeadband.defaultValue)
	viper.SetDefault(trackLength.flagKey, trackLength.defaultValue)

	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString(logLevel.flagKey))); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	sync := client.DefaultConfig()
	sync.TickInterval = viper.GetDuration(tickInterval.flagKey)
	sync.HeartbeatEvery = viper.GetInt(heartbeatEvery.flagKey)
	sync.SeekThreshold = viper.GetFloat64(seekThreshold.flagKey)
	sync.HardSyncThreshold = viper.GetFloat64(hardSyncThreshold.flagKey)
	sync.DriftDeadband = viper.GetFloat64(driftDeadband.flagKey)
	if sync.TickInterval <= 0 {
		return nil, fmt.Errorf("tick interval must be positive, got %s", sync.TickInterval)
	}

	return &clientConfig{
		ServerURL:   viper.GetString(serverURL.flagKey),
		RoomKey:     viper.GetString(roomKey.flagKey),
		DisplayName: viper.GetString(displayName.flagKey),
		LogLevel:    level,
		TrackLength: viper.GetFloat64(trackLength.flagKey),
		Sync:        sync,
	}, nil
}

const usage = `commands:
  play | pause | seek <seconds>
  next | prev | change <id> | enqueue <id> | dequeue <index>
  status | quit`

func main() {
	_ = godotenv.Load()

	cfg, err := loadClientConfig()
	if err != nil {
		log.Fatal(err)
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *clientConfig) error {
	logger := slog.New(ctxlogger.ContextHandler{Handler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = ctxlogger.AppendCtx(ctx, slog.String("room_key", cfg.RoomKey))

	conn, err := client.Dial(ctx, cfg.ServerURL, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Join(ctx, cfg.RoomKey, cfg.DisplayName); err != nil {
		return err
	}

	player := client.NewSimPlayer(cfg.TrackLength, nil)
	loop := client.NewLoop(player, conn, cfg.Sync, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inputs := make(chan client.Input, 16)
	go func() {
		defer cancel()
		if err := conn.ReadInputs(ctx, inputs); err != nil && ctx.Err() == nil {
			logger.InfoContext(ctx, "connection closed", "error", err)
		}
	}()

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx, inputs) }()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Println(usage)
	for {
		select {
		case <-ctx.Done():
			<-done
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := command(ctx, conn, inputs, line)
			if err != nil {
				fmt.Println(err)
			}
			if quit {
				return nil
			}
		}
	}
}

func command(ctx context.Context, conn *client.Conn, inputs chan<- client.Input, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	push := func(in client.Input) {
		select {
		case inputs <- in:
		case <-ctx.Done():
		}
	}

	arg := func() (string, error) {
		if len(fields) < 2 {
			return "", fmt.Errorf("%s needs an argument", fields[0])
		}
		return fields[1], nil
	}

	switch fields[0] {
	case "play":
		push(client.UserPlay{})
	case "pause":
		push(client.UserPause{})
	case "seek":
		s, err := arg()
		if err != nil {
			return false, err
		}
		to, err := strconv.ParseFloat(s, 64)
		if err != nil || to < 0 {
			return false, fmt.Errorf("invalid position %q", s)
		}
		push(client.UserSeek{To: to})
	case "next":
		return false, conn.PlayNext(ctx)
	case "prev":
		return false, conn.PlayPrevious(ctx)
	case "change", "enqueue":
		id, err := arg()
		if err != nil {
			return false, err
		}
		if fields[0] == "change" {
			return false, conn.ChangeTrack(ctx, domain.Track{ID: id})
		}
		return false, conn.Enqueue(ctx, domain.Track{ID: id})
	case "dequeue":
		s, err := arg()
		if err != nil {
			return false, err
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return false, fmt.Errorf("invalid index %q", s)
		}
		return false, conn.Dequeue(ctx, i)
	case "status":
		reply := make(chan client.Status, 1)
		push(client.StatusRequest{Reply: reply})
		select {
		case st := <-reply:
			printStatus(st)
		case <-ctx.Done():
		}
	case "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q\n%s", fields[0], usage)
	}

	return false, nil
}

func printStatus(st client.Status) {
	track := "-"
	if st.Track != nil {
		track = st.Track.ID
		if st.Track.Title != "" {
			track += " (" + st.Track.Title + ")"
		}
	}

	fmt.Printf("track: %s\n", track)
	fmt.Printf("position: %.1f/%.1f  room: %.1f  playing: %t  rate: %.2f  sync: %s\n",
		st.Position, st.Duration, st.Authority, st.IsPlaying, st.Rate, st.State)
	fmt.Printf("members: %d  queue: %d  can play next: %t\n", st.Members, len(st.Queue), st.CanPlayNext)
}
