// master is the master controller: it collects alarm frames pushed by
// sensor nodes and lists them over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sensor_node/internal/config"
	"sensor_node/internal/handlers"
	"sensor_node/internal/logger"
	"sensor_node/internal/server"
	"sensor_node/internal/service"
)

func main() {
	cfg, err := config.Load(config.NewFlagSet("master"), os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	// init logger
	log := logger.Get(cfg.LogLevel)

	tokens, err := service.NewTokenService(cfg.SigningKey, cfg.TokenTTL)
	if err != nil {
		log.Fatalw("master needs alarm.signing_key", "err", err)
	}

	// wire dependencies
	services := service.NewService(service.NewAlarmInbox(service.DefaultInboxCapacity), tokens)
	apiHandler := handlers.NewHandler(services, log)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, cfg.MasterPort, apiHandler, log)

	// graceful shutdown
	waitForShutdown(srv, log)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "9090"
		}
		log.Infow("master controller listening", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
