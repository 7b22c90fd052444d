// Package mqtt mirrors simulation records to an MQTT broker.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/ridepool/core/records"
)

// Config describes the broker connection and what gets mirrored. An empty
// Broker disables the mirror.
type Config struct {
	Broker   string `json:"broker"`
	ClientID string `json:"client_id"`
	Username string `json:"username"`
	Password string `json:"password"`
	// TopicPrefix defaults to "ridepool".
	TopicPrefix string `json:"topic_prefix"`
	// Kinds restricts the mirrored record kinds. Empty mirrors all of them.
	Kinds      []string        `json:"kinds"`
	QoS        map[string]byte `json:"qos"`
	Retain     bool            `json:"retain"`
	TLS        TLSConfig       `json:"tls"`
	Will       WillConfig      `json:"will"`
	MaxRetries int             `json:"max_retries"`
	BackoffMS  int             `json:"backoff_ms"`
}

// TLSConfig enables TLS towards the broker. CAFile alone verifies the
// server, CertFile and KeyFile add a client certificate.
type TLSConfig struct {
	Enabled  bool   `json:"enabled"`
	CAFile   string `json:"ca_file"`
	CertFile string `json:"cert_file"`
	KeyFile  string `json:"key_file"`
}

// WillConfig is the last will the broker publishes if the simulator drops
// off.
type WillConfig struct {
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
	QoS     byte   `json:"qos"`
	Retain  bool   `json:"retain"`
}

func (c *Config) SetDefaults() {
	c.TopicPrefix = strings.TrimSuffix(c.TopicPrefix, "/")
	if c.TopicPrefix == "" {
		c.TopicPrefix = "ridepool"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

func (c Config) Validate() error {
	if c.Broker == "" {
		return nil
	}
	for _, k := range c.Kinds {
		if !records.Kind(k).Valid() {
			return fmt.Errorf("unknown record kind %q", k)
		}
	}
	for k, q := range c.QoS {
		if q > 2 {
			return fmt.Errorf("qos for %s must be 0, 1 or 2", k)
		}
	}
	if t := c.TLS; t.Enabled && (t.CertFile == "") != (t.KeyFile == "") {
		return errors.New("tls cert_file and key_file go together")
	}
	return nil
}

// clientOptions translates c into paho options.
func (c Config) clientOptions() (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().
		AddBroker(c.Broker).
		SetClientID(c.ClientID).
		SetAutoReconnect(true)
	if c.Username != "" {
		opts.SetUsername(c.Username)
		opts.SetPassword(c.Password)
	}
	if c.TLS.Enabled {
		tc, err := c.TLS.load()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tc)
	}
	if w := c.Will; w.Topic != "" {
		opts.SetWill(w.Topic, w.Payload, w.QoS, w.Retain)
	}
	return opts, nil
}

func (t TLSConfig) load() (*tls.Config, error) {
	tc := &tls.Config{MinVersion: tls.VersionTLS12}
	if t.CAFile != "" {
		pem, err := os.ReadFile(t.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificate in %s", t.CAFile)
		}
		tc.RootCAs = pool
	}
	if t.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tc.Certificates = []tls.Certificate{cert}
	}
	return tc, nil
}
