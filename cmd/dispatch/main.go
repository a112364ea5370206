package main

import (
	"context"
	"flag"
	"os"

	"github.com/Temutjin2k/ride-dispatch/config"
	_ "github.com/Temutjin2k/ride-dispatch/docs"
	"github.com/Temutjin2k/ride-dispatch/internal/app"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
)

var (
	helpFlag   = flag.Bool("help", false, "Show help message")
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
)

func main() {
	flag.Parse()
	if *helpFlag {
		config.PrintHelp()
		return
	}

	ctx := context.Background()
	log := logger.InitLogger("ride-dispatch", logger.LevelDebug)

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Error(ctx, "failed to configure application", err)
		config.PrintHelp()
		os.Exit(1)
	}

	log = logger.InitLogger(cfg.Service.Name, cfg.Service.LogLevel)

	// Printing configuration
	config.PrintConfig(ctx, cfg, log)

	// Creating application
	application, err := app.NewApplication(ctx, *cfg, log)
	if err != nil {
		log.Error(ctx, "failed to init application", err)
		os.Exit(1)
	}

	// Running the application
	if err = application.Run(ctx); err != nil {
		log.Error(ctx, "failed to run application", err)
		os.Exit(1)
	}
}
