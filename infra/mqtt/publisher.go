package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/ridepool/core/records"
	"github.com/kilianp07/ridepool/infra/logger"
)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Publisher implements records.Appender by publishing every record as JSON
// on <prefix>/<kind>.
type Publisher struct {
	cfg   Config
	cli   pahoClient
	kinds map[records.Kind]bool
	log   logger.Logger
}

var _ records.Appender = (*Publisher)(nil)

// NewPublisher connects to the broker and blocks until the connection is
// up.
func NewPublisher(cfg Config) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt: broker is required")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("mqtt: %w", err)
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "ridepool-" + uuid.NewString()[:8]
	}
	opts, err := cfg.clientOptions()
	if err != nil {
		return nil, fmt.Errorf("mqtt: %w", err)
	}

	p := &Publisher{cfg: cfg, log: logger.New("mqtt_publisher")}
	if len(cfg.Kinds) > 0 {
		p.kinds = make(map[records.Kind]bool, len(cfg.Kinds))
		for _, k := range cfg.Kinds {
			p.kinds[records.Kind(k)] = true
		}
	}
	opts.OnConnect = func(paho.Client) { p.log.Infof("connected to %s", cfg.Broker) }
	opts.OnConnectionLost = func(_ paho.Client, err error) { p.log.Errorf("connection lost: %v", err) }

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt: connect: %w", token.Error())
	}
	p.cli = c
	return p, nil
}

// Topic returns the topic records of kind k are published on.
func (p *Publisher) Topic(k records.Kind) string {
	return p.cfg.TopicPrefix + "/" + string(k)
}

// Append publishes rec. Kinds outside the configured set are skipped. A
// failed publish is retried with exponential backoff.
func (p *Publisher) Append(ctx context.Context, rec records.Record) error {
	if p.kinds != nil && !p.kinds[rec.Kind] {
		return nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	topic := p.Topic(rec.Kind)
	qos := p.cfg.QoS[string(rec.Kind)]
	backoff := time.Duration(p.cfg.BackoffMS) * time.Millisecond

	for attempt := 0; ; attempt++ {
		token := p.cli.Publish(topic, qos, p.cfg.Retain, payload)
		token.Wait()
		err = token.Error()
		if err == nil {
			return nil
		}
		if attempt == p.cfg.MaxRetries {
			return fmt.Errorf("mqtt: publish %s: %w", topic, err)
		}
		p.log.Warnf("publish %s attempt %d: %v", topic, attempt+1, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff << attempt):
		}
	}
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
	return nil
}
