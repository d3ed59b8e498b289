package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	log "github.com/sirupsen/logrus"

	"dicewager/bot"
	"dicewager/cmd"
	"dicewager/config"
	"dicewager/database"
	"dicewager/logging"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			if err := handleMigrationCommand(); err != nil {
				log.Fatal("Migration error: ", err)
			}
			return
		case "simulate":
			if err := handleSimulateCommand(); err != nil {
				log.Fatal("Simulation error: ", err)
			}
			return
		}
	}

	cfg := config.Get()
	logFile, err := logging.Setup(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		log.Fatal("Logging error: ", err)
	}
	defer logFile.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	if err := cmd.Run(ctx); err != nil {
		log.Fatal("Application error: ", err)
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: dicewager migrate [up|down|status] [args...]")
	}

	command := os.Args[2]
	switch command {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}

// handleSimulateCommand runs "dicewager simulate [trials] [stake]"
func handleSimulateCommand() error {
	trials, stake := 100000, int64(1000)
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil || n <= 0 {
			return fmt.Errorf("trials must be a positive integer, got %q", os.Args[2])
		}
		trials = n
	}
	if len(os.Args) > 3 {
		s, err := strconv.ParseInt(os.Args[3], 10, 64)
		if err != nil || s <= 0 {
			return fmt.Errorf("stake must be a positive integer, got %q", os.Args[3])
		}
		stake = s
	}

	_, err := cmd.Simulate(trials, stake, bot.NewRandomDice()).WriteTo(os.Stdout)
	return err
}
