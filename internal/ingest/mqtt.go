package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"affect/internal/config"
	"affect/internal/logging"
	"affect/internal/signal"
)

// Router accepts decoded samples. Implemented by session.Manager.
type Router interface {
	Ingest(ctx context.Context, sample signal.Sample) error
}

// MQTTSource subscribes to the configured sample topic and forwards every
// decoded sample to the router. Decode failures and routing rejections are
// logged and dropped; the subscription stays up.
type MQTTSource struct {
	cfg    config.MQTT
	router Router
	logger *slog.Logger
	client mqtt.Client
}

// NewMQTTSource builds a source; call Start to connect.
func NewMQTTSource(cfg config.MQTT, router Router, logger *slog.Logger) *MQTTSource {
	return &MQTTSource{
		cfg:    cfg,
		router: router,
		logger: logging.NewComponentLogger(logger, "ingest-mqtt"),
	}
}

// Start connects to the broker and subscribes. The subscription is
// re-established automatically after reconnects.
func (s *MQTTSource) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}

	clientID := s.cfg.ClientID
	if strings.TrimSpace(clientID) == "" {
		clientID = fmt.Sprintf("affectd-%d", time.Now().Unix())
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.cfg.Broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(client mqtt.Client) {
		token := client.Subscribe(s.cfg.Topic, 1, s.handleMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			s.logger.Error("subscribe failed", logging.Error(err))
			return
		}
		s.logger.Info("subscribed to sample topic", logging.String("topic", s.cfg.Topic))
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		s.logger.Warn("broker connection lost", logging.Error(err))
	}

	s.client = mqtt.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect to broker %s: %w", s.cfg.Broker, token.Error())
	}
	s.logger.Info("connected to broker", logging.String("broker", s.cfg.Broker))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop disconnects from the broker.
func (s *MQTTSource) Stop() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}

func (s *MQTTSource) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	sample, err := DecodeSample(msg.Payload())
	if err != nil {
		s.logger.Warn("sample payload rejected",
			logging.String("topic", msg.Topic()),
			logging.Error(err))
		return
	}
	if sample.SessionID == "" {
		// Topic layout is <prefix>/<session id>; fall back to it when the
		// payload omits the id.
		sample.SessionID = sessionIDFromTopic(msg.Topic())
	}
	if err := s.router.Ingest(context.Background(), sample); err != nil {
		s.logger.Warn("sample not routed",
			logging.String(logging.FieldSessionID, sample.SessionID),
			logging.Error(err))
	}
}

func sessionIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	return parts[len(parts)-1]
}

// DecodeBatch parses an ingest payload holding either a single JSON sample
// or an array of samples. Every sample in an array must be valid.
func DecodeBatch(payload []byte) ([]signal.Sample, error) {
	trimmed := bytes.TrimLeft(payload, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '[' {
		sample, err := DecodeSample(payload)
		if err != nil {
			return nil, err
		}
		return []signal.Sample{sample}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode sample batch: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("sample batch is empty")
	}
	samples := make([]signal.Sample, 0, len(raw))
	for i, item := range raw {
		sample, err := DecodeSample(item)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

// DecodeSample parses one JSON sample payload and checks the fields the
// pipeline cannot work without.
func DecodeSample(payload []byte) (signal.Sample, error) {
	var sample signal.Sample
	if err := json.Unmarshal(payload, &sample); err != nil {
		return signal.Sample{}, fmt.Errorf("decode sample: %w", err)
	}
	if sample.TimestampMs <= 0 {
		return signal.Sample{}, fmt.Errorf("sample timestamp %d is not positive", sample.TimestampMs)
	}
	if sample.GSR < 0 {
		return signal.Sample{}, fmt.Errorf("sample gsr %f is negative", sample.GSR)
	}
	if sample.HR < 0 {
		return signal.Sample{}, fmt.Errorf("sample hr %f is negative", sample.HR)
	}
	return sample, nil
}
