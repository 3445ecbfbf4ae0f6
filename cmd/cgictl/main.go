package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"cgiclient/api"
	"cgiclient/internal/config"
)

const usage = `usage: cgictl [flags] <command> [args]

commands:
  login                           print a session token
  upload   <uid> <archive.tar.gz> replace lambda content
  download <uid> <archive.tar.gz> save lambda content
  push     <uid> <path> <file>    upload a single file
  pull     <uid> <path> [file]    download a single file (stdout by default)
  info     <uid>                  print lambda definition
  list                            print all lambdas
  invoke   <uid> <action>         run a lambda action
  update   <uid> <manifest>       validate and replace the manifest (json or yaml)
  batch    <calls.json|->         run [{"method":..,"params":[..]}] as one batch

flags:
`

func main() {
	// Parse flags
	configPath := flag.String("config", "", "path to config file (json or yaml)")
	token := flag.String("token", os.Getenv("CGI_TOKEN"), "session token; login with configured credentials when empty")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// Load config
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			// Basic logger for startup errors
			log := zerolog.New(os.Stderr).With().Timestamp().Logger()
			log.Fatal().Err(err).Msg("failed to load config")
		}
	}

	logger := setupLogger(cfg.LogLevel)

	client, err := api.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create client")
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := &command{
		client: client,
		cfg:    cfg,
		token:  api.Token(*token),
		out:    os.Stdout,
		logger: logger,
	}

	if err := cmd.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		logger.Error().Err(err).Str("command", flag.Arg(0)).Msg("command failed")
		stop()
		client.Close()
		os.Exit(1)
	}
}

// setupLogger configures the zerolog logger
func setupLogger(level string) zerolog.Logger {
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	// stdout carries command output
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
