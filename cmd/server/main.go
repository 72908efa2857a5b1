// Command server exposes the pricer over HTTP.
package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/banachtech/pathpricer/api"
	"github.com/banachtech/pathpricer/config"
	"github.com/banachtech/pathpricer/db"
	"github.com/banachtech/pathpricer/logging"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(c.Log.Logging("pricer", "api"))
	slog.SetDefault(logger)
	if c.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	var store db.Store
	if c.Database.DSN != "" {
		gdb, err := db.Open(c.Database.DSN, logger, c.Database.SlowThreshold)
		if err != nil {
			return err
		}
		sqlStore := db.NewStore(gdb)
		if err := sqlStore.Migrate(); err != nil {
			return err
		}
		store = sqlStore
	}

	server, err := api.NewServer(c, store, logger)
	if err != nil {
		return err
	}
	logger.Info("listening", "addr", c.Server.Addr, "persistence", store != nil)
	return server.Start(c.Server.Addr)
}
