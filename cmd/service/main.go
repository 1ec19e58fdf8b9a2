package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/mkovacevic/shopfront/internal"
	"github.com/mkovacevic/shopfront/internal/config"
	"github.com/mkovacevic/shopfront/internal/logging"
	"github.com/mkovacevic/shopfront/pkg"

	log "github.com/sirupsen/logrus"
)

func main() {
	fmt.Println("starting ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	log.Warnf("---->> running in [%s] environment", *env)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	sentryDSN := os.Getenv("SENTRY_DSN")
	logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    false,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        sentryDSN,
		SentryServerName: "shopfront-service",
	})

	log.Debugf("using port: %d", cfg.Port)
	log.Debugf("using server logs path: [%s]", cfg.LogsPath)

	versionInfo, err := tryGetLastCommitHash()
	if err != nil {
		log.Tracef("failed to get last commit hash / version info: %s", err)
	} else {
		log.Tracef("running version: %s", versionInfo)
	}

	// both secrets are required, the service refuses to start without
	// them; a guessable default here would defeat the whole login flow
	sessionSecret := os.Getenv("SHOPFRONT_SESSION_SECRET")
	if sessionSecret == "" {
		log.Fatalf("session secret not set. use SHOPFRONT_SESSION_SECRET env var to set it")
	}

	adminPassword := os.Getenv("SHOPFRONT_ADMIN_PASSWORD")
	if adminPassword == "" {
		log.Fatalf("admin password not set. use SHOPFRONT_ADMIN_PASSWORD env var to set it")
	}

	redisPassword := os.Getenv("SHOPFRONT_REDIS_PASS")
	if cfg.RedisEnabled && redisPassword == "" {
		log.Errorf("redis password not set. use SHOPFRONT_REDIS_PASS")
	}

	if cfg.StaticFilesPath != "" {
		staticDirExists, err := pkg.PathExists(cfg.StaticFilesPath, true)
		if err != nil {
			log.Fatalf("check static files dir: %s", err)
		}
		if !staticDirExists {
			log.Errorf("static files dir not found: %s", cfg.StaticFilesPath)
		}
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	server, err := internal.NewServer(
		ctx,
		internal.NewServerParams{
			Config:        cfg,
			VersionInfo:   versionInfo,
			SessionSecret: sessionSecret,
			AdminPassword: adminPassword,
			RedisPassword: redisPassword,
		},
	)
	if err != nil {
		log.Fatalf("new server: %s", err)
	}

	server.Serve(ctx, cfg.Host, cfg.Port)

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, killing everything ...", receivedSig)
	cancel()

	server.GracefulShutdown()
}

// tryGetLastCommitHash will try to get the last commit hash
// assumes that the built main executable is in project root
func tryGetLastCommitHash() (string, error) {
	cmd := exec.Command("/usr/bin/git", "rev-parse", "HEAD")
	stdout, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return pkg.BytesToString(stdout), nil
}
