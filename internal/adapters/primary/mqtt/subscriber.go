// Package mqtt ingests temperature readings published to an MQTT topic.
// Messages carry the same payload as POST /temperatures and go through the
// same validation and service rules.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
	"github.com/sean-rowe/geotemp-service/internal/core/ports"
	"github.com/sean-rowe/geotemp-service/internal/core/validation"
)

// Ingest outcomes reported to the Recorder.
const (
	OutcomeAccepted = "accepted"
	OutcomeInvalid  = "invalid"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// ErrStopped is returned by Connect after Disconnect was called.
var ErrStopped = errors.New("subscriber stopped")

// Config holds the broker connection settings.
type Config struct {
	Broker   string
	Port     int
	ClientID string
	Topic    string
	QoS      byte
}

// Recorder counts ingested messages by outcome.
type Recorder interface {
	RecordIngest(ctx context.Context, outcome string)
}

// Subscriber consumes reading messages and records them through the
// temperature service.
type Subscriber struct {
	client   paho.Client
	cfg      Config
	service  ports.TemperatureService
	recorder Recorder
	logger   *zap.Logger

	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSubscriber creates a subscriber for cfg.Topic. The connection is only
// opened by Connect. recorder may be nil.
func NewSubscriber(cfg Config, service ports.TemperatureService, recorder Recorder, logger *zap.Logger) *Subscriber {
	s := &Subscriber{
		cfg:      cfg,
		service:  service,
		recorder: recorder,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Subscriptions do not survive a clean-session reconnect.
	opts.SetOnConnectHandler(func(_ paho.Client) {
		s.setConnected(true)
		logger.Info("mqtt connected", zap.String("broker", cfg.Broker), zap.Int("port", cfg.Port))

		if err := s.subscribe(); err != nil {
			logger.Error("mqtt subscribe failed", zap.String("topic", cfg.Topic), zap.Error(err))
		}
	})

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		s.setConnected(false)
		logger.Warn("mqtt connection lost", zap.Error(err))
	})

	s.client = paho.NewClient(opts)

	return s
}

// Connect opens the broker connection. It returns when the connection is
// established, ctx is done or the subscriber is stopped.
func (s *Subscriber) Connect(ctx context.Context) error {
	select {
	case <-s.stopCh:
		return ErrStopped
	default:
	}

	if s.IsConnected() {
		return nil
	}

	token := s.client.Connect()

	const poll = 200 * time.Millisecond
	for !token.WaitTimeout(poll) {
		select {
		case <-ctx.Done():
			s.client.Disconnect(0)
			return ctx.Err()
		case <-s.stopCh:
			s.client.Disconnect(0)
			return ErrStopped
		default:
		}
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	return nil
}

func (s *Subscriber) subscribe() error {
	token := s.client.Subscribe(s.cfg.Topic, s.cfg.QoS, func(_ paho.Client, msg paho.Message) {
		s.handleMessage(context.Background(), msg.Topic(), msg.Payload())
	})

	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", s.cfg.Topic)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.cfg.Topic, err)
	}

	s.logger.Info("subscribed to mqtt topic", zap.String("topic", s.cfg.Topic), zap.Uint8("qos", s.cfg.QoS))

	return nil
}

// handleMessage validates one message and records the reading. It returns
// the id of the stored reading, or 0 when the message was dropped.
func (s *Subscriber) handleMessage(ctx context.Context, topic string, payload []byte) int64 {
	logger := s.logger.With(zap.String("topic", topic))

	p, err := validation.DecodeBytes(payload)
	if err == nil {
		err = validation.Validate(p, validation.TemperatureCreate)
	}

	if err != nil {
		logger.Warn("invalid temperature message", zap.Int("size", len(payload)), zap.Error(err))
		s.record(ctx, OutcomeInvalid)

		return 0
	}

	cityID := p.Int("cityId")

	id, err := s.service.Create(ctx, cityID, p.Float("value"))
	if err != nil {
		if domain.HasCode(err, domain.CodeInternal) {
			logger.Error("failed to record temperature", zap.Int64("city_id", cityID), zap.Error(err))
			s.record(ctx, OutcomeFailed)
		} else {
			logger.Warn("temperature rejected", zap.Int64("city_id", cityID), zap.Error(err))
			s.record(ctx, OutcomeRejected)
		}

		return 0
	}

	logger.Debug("temperature recorded", zap.Int64("id", id), zap.Int64("city_id", cityID))
	s.record(ctx, OutcomeAccepted)

	return id
}

func (s *Subscriber) record(ctx context.Context, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordIngest(ctx, outcome)
	}
}

// IsConnected reports whether the broker connection is up.
func (s *Subscriber) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()

	return connected && s.client.IsConnected()
}

// Disconnect unsubscribes and closes the connection. It is safe to call more
// than once.
func (s *Subscriber) Disconnect() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.IsConnected() {
		s.client.Unsubscribe(s.cfg.Topic).WaitTimeout(2 * time.Second)
	}

	s.client.Disconnect(250)
	s.setConnected(false)
	s.logger.Info("mqtt subscriber disconnected")
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
