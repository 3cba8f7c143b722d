package subscriber

import (
	"context"
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/domain"
)

const topicPattern = "/field/tracker/+/location"

type ingestionService interface {
	Submit(ctx context.Context, ping *domain.Ping) (*domain.Result, error)
}

type pingMessage struct {
	TrackerID string   `json:"tracker_id"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Timestamp int64    `json:"timestamp"`
	Accuracy  float64  `json:"accuracy,omitempty"`
	Battery   *float64 `json:"battery,omitempty"`
	Velocity  *float64 `json:"velocity,omitempty"`
}

// PingSubscriber is the device-protocol adapter: it decodes location
// messages off MQTT and forwards them to the ingestion gateway. All
// rejection handling happens in the gateway; the subscriber only logs
// outcomes and never crashes on bad input.
type PingSubscriber struct {
	client mqtt.Client
	ingest ingestionService
	logger *zap.Logger
}

func NewPingSubscriber(client mqtt.Client, ingest ingestionService, logger *zap.Logger) *PingSubscriber {
	return &PingSubscriber{client: client, ingest: ingest, logger: logger}
}

func (s *PingSubscriber) Start() error {
	token := s.client.Subscribe(topicPattern, 1, s.handleMessage)
	token.Wait()
	return token.Error()
}

func (s *PingSubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var raw pingMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		s.logger.Warn("invalid ping payload", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}

	ping := &domain.Ping{
		TrackerID: raw.TrackerID,
		Lat:       raw.Latitude,
		Lng:       raw.Longitude,
		AccuracyM: raw.Accuracy,
		Battery:   raw.Battery,
		Velocity:  raw.Velocity,
	}
	if raw.Timestamp > 0 {
		ping.ReportedAt = time.Unix(raw.Timestamp, 0)
	}

	result, err := s.ingest.Submit(context.Background(), ping)
	if err != nil {
		s.logger.Error("ping processing error", zap.String("tracker_id", raw.TrackerID), zap.Error(err))
		return
	}

	if result.Skipped {
		s.logger.Debug("ping skipped",
			zap.String("tracker_id", raw.TrackerID),
			zap.String("reason", result.Reason.Message()),
		)
		return
	}

	if len(result.Events) > 0 {
		s.logger.Info("geofence transitions",
			zap.String("tracker_id", raw.TrackerID),
			zap.Int("count", len(result.Events)),
		)
	}
}
