// Package config provides YAML configuration parsing for the oBIX connector.
//
// Example configuration:
//
//	gateway:
//	  host: 10.1.2.3
//	  node_id: N001C42
//	  device_id: DEV201
//
//	mapping:
//	  AV101: [temperature_room1, temperature]
//	  AV102: [co2_room1, concentration]
//
//	filters:
//	  AV101: [-20, 60]
//	  AV102: [0, null]
//
//	global:
//	  events_ttl: 2h
//	  polling_period: 5m
//
//	sink:
//	  type: kafka
//	  brokers: [localhost:9092]
//	  topic: sensor-events
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Parse when the global section omits them.
const (
	DefaultEventsTTL     = 2 * time.Hour
	DefaultPollingPeriod = 5 * time.Minute
)

// minPollingPeriod is the minimum allowed polling period.
// This prevents accidental DoS of the gateway with overly aggressive polling.
const minPollingPeriod = 1 * time.Second

// Config is the root configuration structure for the connector.
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Gateway identifies the remote oBIX endpoint. All fields are required.
	Gateway Gateway `yaml:"gateway"`

	// Mapping assigns a canonical name and type to each gateway point.
	// At least one entry is required; keys are gateway point identifiers.
	Mapping map[string]VarDef `yaml:"mapping"`

	// Filters holds optional min/max bounds per gateway point.
	// Points without an entry are unfiltered.
	Filters map[string]Bounds `yaml:"filters"`

	// Global holds engine-wide tunables.
	Global Global `yaml:"global"`

	// Sink selects the downstream event bus. Optional; defaults to the
	// log sink.
	Sink Sink `yaml:"sink"`
}

// Gateway identifies the remote endpoint and the addressing prefix shared by
// every monitored point.
type Gateway struct {
	// Host is the gateway host name or IP.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}.
	Host string `yaml:"host"`

	// NodeID is the node identifier as defined in the gateway.
	NodeID string `yaml:"node_id"`

	// DeviceID is the device identifier as defined in the gateway.
	DeviceID string `yaml:"device_id"`
}

// VarDef is the canonical identity of a point: [name, type] in YAML.
type VarDef struct {
	Name string
	Type string
}

// UnmarshalYAML decodes a VarDef from a two-element sequence.
func (v *VarDef) UnmarshalYAML(node *yaml.Node) error {
	var pair []string
	if err := node.Decode(&pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("mapping entry must be [name, type], got %d elements", len(pair))
	}
	v.Name = pair[0]
	v.Type = pair[1]
	return nil
}

// Bounds is an inclusive numeric validity range: [min, max] in YAML, either
// bound allowed to be null when no check is to be applied for it.
type Bounds struct {
	Min *float64
	Max *float64
}

// UnmarshalYAML decodes Bounds from a two-element sequence of nullable numbers.
func (b *Bounds) UnmarshalYAML(node *yaml.Node) error {
	var pair []*float64
	if err := node.Decode(&pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("filter entry must be [min, max], got %d elements", len(pair))
	}
	b.Min = pair[0]
	b.Max = pair[1]
	return nil
}

// Global holds the engine-wide tunables.
type Global struct {
	// EventsTTL is the maximum age of an emitted value before it is
	// re-emitted even without change. Defaults to 2h.
	EventsTTL Duration `yaml:"events_ttl"`

	// PollingPeriod is the time between polling cycles. Defaults to 5m.
	PollingPeriod Duration `yaml:"polling_period"`
}

// Sink selects and configures the downstream event bus.
type Sink struct {
	// Type is one of "log", "kafka", "mqtt". Empty defaults to "log".
	Type string `yaml:"type"`

	// Kafka settings (type: kafka).
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`

	// MQTT settings (type: mqtt). Username and Password support
	// environment variable substitution.
	BrokerURL   string `yaml:"broker_url"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	QoS         byte   `yaml:"qos"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment
// values. A reference to an unset variable with no default is an error.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		sub := envVarPattern.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}

		name := sub[1]
		hasDefault := len(sub) > 2 && sub[2] != ""

		value, exists := os.LookupEnv(name)
		if !exists {
			if hasDefault {
				return sub[3]
			}
			firstErr = fmt.Errorf("environment variable %q is not set", name)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in the gateway host and sink credential
// fields. Defaults are applied for EventsTTL (2h) and PollingPeriod (5m).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Global.EventsTTL == 0 {
		cfg.Global.EventsTTL = Duration(DefaultEventsTTL)
	}
	if cfg.Global.PollingPeriod == 0 {
		cfg.Global.PollingPeriod = Duration(DefaultPollingPeriod)
	}
	if cfg.Sink.Type == "" {
		cfg.Sink.Type = "log"
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandAndValidate expands environment references and checks the config for
// the errors that must stop the engine from ever starting.
func (c *Config) expandAndValidate() error {
	for _, field := range []*string{
		&c.Gateway.Host, &c.Sink.BrokerURL, &c.Sink.Username, &c.Sink.Password,
	} {
		expanded, err := expandEnvVars(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	if c.Gateway.Host == "" {
		return fmt.Errorf("gateway %q parameter is mandatory", "host")
	}
	if c.Gateway.NodeID == "" {
		return fmt.Errorf("gateway %q parameter is mandatory", "node_id")
	}
	if c.Gateway.DeviceID == "" {
		return fmt.Errorf("gateway %q parameter is mandatory", "device_id")
	}

	if len(c.Mapping) == 0 {
		return fmt.Errorf("mapping must define at least one point")
	}
	seen := make(map[string]string, len(c.Mapping))
	for pointID, def := range c.Mapping {
		if def.Name == "" || def.Type == "" {
			return fmt.Errorf("mapping entry %q must define both name and type", pointID)
		}
		if prev, dup := seen[def.Name]; dup {
			return fmt.Errorf("points %q and %q map to the same variable %q", prev, pointID, def.Name)
		}
		seen[def.Name] = pointID
	}

	for pointID, b := range c.Filters {
		if _, ok := c.Mapping[pointID]; !ok {
			return fmt.Errorf("filter references unknown point %q", pointID)
		}
		if b.Min != nil && b.Max != nil && *b.Min > *b.Max {
			return fmt.Errorf("filter for %q has min > max", pointID)
		}
	}

	if c.Global.PollingPeriod.Duration() < minPollingPeriod {
		return fmt.Errorf("polling_period must be at least %s, got %s",
			minPollingPeriod, c.Global.PollingPeriod.Duration())
	}
	if c.Global.EventsTTL.Duration() <= 0 {
		return fmt.Errorf("events_ttl must be positive, got %s", c.Global.EventsTTL.Duration())
	}

	switch c.Sink.Type {
	case "log":
	case "kafka":
		if len(c.Sink.Brokers) == 0 || c.Sink.Topic == "" {
			return fmt.Errorf("kafka sink requires brokers and topic")
		}
	case "mqtt":
		if c.Sink.BrokerURL == "" {
			return fmt.Errorf("mqtt sink requires broker_url")
		}
	default:
		return fmt.Errorf("unknown sink type %q (expected 'log', 'kafka' or 'mqtt')", c.Sink.Type)
	}

	return nil
}
