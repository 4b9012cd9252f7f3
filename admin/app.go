package admin

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"

	"github.com/nrawrx3/unolink"
	"github.com/nrawrx3/unolink/cmd/cmdcommon"
	"github.com/nrawrx3/unolink/historian"
	"github.com/nrawrx3/unolink/internal/utils"
	"github.com/nrawrx3/unolink/session"
)

const logFilePrefix = "unolink_host"

func msecs(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func (c *EnvConfig) sessionConfig(logger *logrus.Logger, sink session.SummarySink, rng *rand.Rand) (session.Config, error) {
	policy, err := unolink.ParseUnoPolicy(strings.ToLower(c.UnoPolicy))
	if err != nil {
		return session.Config{}, err
	}
	return session.Config{
		LocalPlayerName:   c.PlayerName,
		Rules:             unolink.Rules{StartingHandSize: unolink.DefaultStartingHandSize, UnoPolicy: policy},
		Rng:               rng,
		BotDelayMin:       msecs(c.BotDelayMinMsecs),
		BotDelayMax:       msecs(c.BotDelayMaxMsecs),
		UnoBannerDuration: msecs(c.UnoBannerMsecs),
		Sink:              sink,
		Logger:            logger,
	}, nil
}

func loadPreset(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

func RunApp() {
	var envConfig EnvConfig
	var hostConfigFile string
	flag.StringVar(&hostConfigFile, "conf", ".env", "Dotenv config file for the host")

	flag.Parse()

	if hostConfigFile == ".env" {
		log.Print("No config file given, reading from .env")
	}

	err := godotenv.Load(hostConfigFile)
	if err != nil {
		log.Fatal(err.Error())
	}

	err = envconfig.Process("HOST", &envConfig)
	if err != nil {
		log.Fatal(err.Error())
	}

	commonConfig, err := cmdcommon.LoadCommonConfig()
	if err != nil {
		log.Fatal(err.Error())
	}

	logger, err := utils.CreateFileLogger(commonConfig.LogDir, logFilePrefix, envConfig.LogLevel)
	if err != nil {
		log.Fatal(err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sink, closeSink, err := historian.New(ctx, logger, envConfig.RedisAddr, envConfig.RedisQueue)
	if err != nil {
		log.Fatal(err.Error())
	}
	defer closeSink()

	preset, err := loadPreset(envConfig.DebugStartingHandConfigJSON)
	if err != nil {
		log.Fatalf("failed to read starting hand config: %s", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	sessionConfig, err := envConfig.sessionConfig(logger, sink, rng)
	if err != nil {
		log.Fatal(err.Error())
	}

	replConfig := ConfigNewREPL{
		TotalPlayers: envConfig.TotalPlayers,
		PresetJSON:   preset,
		Rng:          rng,
	}

	if envConfig.Offline {
		sessionConfig.Role = session.RoleOffline
		sessionConfig.LocalPlayerID = HostPlayerID
		s, err := session.New(sessionConfig)
		if err != nil {
			log.Fatal(err.Error())
		}
		go s.Run(ctx)

		replConfig.Session = s
		fmt.Printf("Offline game against %d bots. Type 'start' to deal.\n", envConfig.TotalPlayers-1)
		if err := NewREPL(replConfig).Run(ctx); err != nil {
			log.Fatal(err.Error())
		}
		return
	}

	var listenAddr utils.HostPortProtocol
	listenAddr.SetHostPort(envConfig.ListenHost, envConfig.ListenPort)

	admin, err := NewAdmin(ConfigNewAdmin{
		ListenAddr:   listenAddr,
		RoomName:     envConfig.RoomName,
		HostName:     envConfig.PlayerName,
		TotalPlayers: envConfig.TotalPlayers,
		Session:      sessionConfig,
		Logger:       logger,
	})
	if err != nil {
		log.Fatal(err.Error())
	}

	go admin.Session().Run(ctx)
	go func() {
		if err := admin.ListenAndServe(); err != nil {
			logger.WithError(err).Error("host server stopped")
			stop()
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		admin.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Hosting room '%s' on %s. Room code: %s\n", admin.RoomName(), listenAddr.BindString(), admin.RoomCode())
	replConfig.Session = admin.Session()
	replConfig.Admin = admin
	if err := NewREPL(replConfig).Run(ctx); err != nil {
		log.Fatal(err.Error())
	}
}
