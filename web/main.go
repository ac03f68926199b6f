package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"visitrack.net/visitrack/core"
	"visitrack.net/visitrack/infrastructure/communication"
	"visitrack.net/visitrack/infrastructure/devops"
	"visitrack.net/visitrack/logging"
	"visitrack.net/visitrack/realtime"
	"visitrack.net/visitrack/security"
	"visitrack.net/visitrack/web/handlers"
	"visitrack.net/visitrack/web/middlewares"
)

func main() {
	_ = godotenv.Load()

	cfg, err := devops.Load(context.Background())
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	secret, err := security.DecodeSecret(cfg.JwtSecret)
	if err != nil {
		log.Fatalf("decode jwt secret: %v", err)
	}

	dm, err := core.New(cfg.DSN, cfg.MaxConnection, core.LogLevelWarn)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer dm.Close()

	hub := realtime.NewHub(logger)

	var ops core.OpsNotifier
	if cfg.SlackInfoChannel != "" {
		ops = communication.ConnectSlack(communication.SlackOption{
			InfoChannelID:  cfg.SlackInfoChannel,
			ErrorChannelID: cfg.SlackErrorChannel,
		})
	}

	sessions := core.NewSessionService(dm.DB, secret, cfg.DeviceTokenTTL, hub, logger)
	liveness := core.NewLivenessService(dm.DB, hub, logger)
	attendance := core.NewAttendanceService(dm.DB, hub, logger)
	alarms := core.NewAlarmService(dm.DB, attendance, hub, communication.NewLogNotifier(logger), ops, logger)
	stations := core.NewStationService(dm.DB, hub, logger)
	buildings := core.NewBuildingService(dm.DB, hub, logger)
	visitors := core.NewVisitorService(dm.DB)

	sweeper := core.NewSweeper(liveness, cfg.SweepInterval, cfg.HeartbeatTimeout, logger)
	sweeper.Start()
	defer sweeper.Stop()

	r := gin.Default()
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	rt := realtime.NewHandler(hub, sessions, secret, logger)
	r.GET("/realtime", rt.Serve)

	station := r.Group("/api/station")
	handlers.RegisterStationRoutes(station, sessions, liveness, attendance)

	admin := r.Group("/api/admin")
	admin.Use(middlewares.Authentication(secret))
	{
		handlers.RegisterAdminStationRoutes(admin, stations, sessions)
		handlers.RegisterBuildingRoutes(admin, buildings)
		handlers.RegisterAlarmRoutes(admin, alarms)
		handlers.RegisterDashboardRoutes(admin, attendance)
		handlers.RegisterExportRoutes(admin, attendance, cfg.ReportBucket)
		handlers.RegisterVisitorRoutes(admin, visitors)
	}

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
