package client

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/nrawrx3/unolink/cmd/cmdcommon"
	"github.com/nrawrx3/unolink/console"
	"github.com/nrawrx3/unolink/historian"
	"github.com/nrawrx3/unolink/internal/utils"
	"github.com/nrawrx3/unolink/session"
)

const connectTimeout = 10 * time.Second

func RunApp() {
	var envConfig EnvConfig
	var configFile string
	flag.StringVar(&configFile, "conf", ".env", "Dotenv config file for the client")
	flag.Parse()

	log.Printf("Loading configs from file %s", configFile)
	if err := godotenv.Load(configFile); err != nil {
		log.Fatal(err.Error())
	}

	if err := envconfig.Process("CLIENT", &envConfig); err != nil {
		log.Fatal(err.Error())
	}

	commonConfig, err := cmdcommon.LoadCommonConfig()
	if err != nil {
		log.Fatal(err.Error())
	}

	hostAddr, err := utils.ResolveTCPAddress(envConfig.HostAddr)
	if err != nil {
		log.Fatalf("invalid host address %q: %s", envConfig.HostAddr, err)
	}

	logger, err := utils.CreateFileLogger(commonConfig.LogDir, "unolink_client_"+envConfig.PlayerName, envConfig.LogLevel)
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

	c, err := NewPlayerClient(ConfigNewPlayerClient{
		HostAddr:   hostAddr,
		RoomCode:   envConfig.RoomCode,
		PlayerName: envConfig.PlayerName,
		Session:    session.Config{Sink: sink, Logger: logger},
		Logger:     logger,
	})
	if err != nil {
		log.Fatal(err.Error())
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	status, err := c.FetchRoomStatus(connectCtx)
	if err != nil {
		cancel()
		log.Fatal(err.Error())
	}
	fmt.Printf("Joining '%s' hosted by %s (%d/%d players)\n", status.RoomName, status.HostName, len(status.Players), status.TotalPlayers)

	err = c.Connect(connectCtx)
	cancel()
	if err != nil {
		log.Fatal(err.Error())
	}
	defer c.Close()

	view := console.New(c.Session(), c)
	logger.AddHook(view.LogHook())

	// A lost connection or a kick resets the view; it stays up until the
	// user quits.
	if err := view.Run(ctx); err != nil {
		log.Fatal(err.Error())
	}
}
