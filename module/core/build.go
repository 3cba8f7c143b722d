package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	redisclient "github.com/go-redis/redis/v8"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	handler "github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/handler/http"
	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/handler/subscriber"
	rediscache "github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/repository/cache/redis"
	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/repository/database/postgres"
	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/repository/publisher/rabbitmq"
	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/service"
)

const (
	snapshotRefreshInterval = 30 * time.Second
	retrySweepInterval      = 2 * time.Minute
	visitSweepInterval      = 5 * time.Minute
	presenceTTL             = 15 * time.Minute
)

type Module struct {
	IngestSvc   *service.IngestionService
	VisitSvc    *service.VisitService
	Dispatcher  *service.DispatcherService
	Snapshots   *service.SnapshotService
	sweeper     *service.VisitSweeper
	handler     *handler.StatusHandler
	subscriber  *subscriber.PingSubscriber
}

func Build(
	db *sql.DB,
	amqpConn *amqp.Connection,
	mqttClient mqtt.Client,
	redisClient *redisclient.Client,
	fallbackTarget string,
	logger *zap.Logger,
) (*Module, error) {
	trackerRepo := postgres.NewTrackerRepo(db)
	zoneRepo := postgres.NewZoneRepo(db)
	settingsRepo := postgres.NewSettingsRepo(db)
	visitRepo := postgres.NewVisitRepo(db)
	eventRepo := postgres.NewEventRepo(db)
	presenceCache := rediscache.NewPresenceCache(redisClient, presenceTTL)

	alertPub, err := rabbitmq.NewAlertPublisher(amqpConn)
	if err != nil {
		return nil, fmt.Errorf("alert publisher: %w", err)
	}

	snapshots := service.NewSnapshotService(settingsRepo, zoneRepo, logger)
	if err := snapshots.Refresh(context.Background()); err != nil {
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}

	visitSvc := service.NewVisitService(visitRepo, logger)
	dispatcher := service.NewDispatcherService(eventRepo, trackerRepo, snapshots, alertPub, fallbackTarget, logger)
	ingestSvc := service.NewIngestionService(trackerRepo, snapshots, visitSvc, presenceCache, dispatcher, logger)
	sweeper := service.NewVisitSweeper(visitRepo, visitSvc, snapshots, dispatcher, logger)
	statusSvc := service.NewStatusService(trackerRepo, visitRepo, eventRepo, presenceCache, snapshots)

	return &Module{
		IngestSvc:  ingestSvc,
		VisitSvc:   visitSvc,
		Dispatcher: dispatcher,
		Snapshots:  snapshots,
		sweeper:    sweeper,
		handler:    handler.NewStatusHandler(statusSvc),
		subscriber: subscriber.NewPingSubscriber(mqttClient, ingestSvc, logger),
	}, nil
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.handler.Register(r)
}

func (m *Module) StartSubscribers() error {
	return m.subscriber.Start()
}

// StartWorkers launches the background loops: snapshot refresh, the
// notification delivery worker, the retry sweep, and the stale-visit
// sweep. All stop when ctx is canceled.
func (m *Module) StartWorkers(ctx context.Context) {
	go m.Snapshots.Run(ctx, snapshotRefreshInterval)
	go m.Dispatcher.Run(ctx)
	go m.Dispatcher.RunSweep(ctx, retrySweepInterval)
	go m.sweeper.Run(ctx, visitSweepInterval)
}
