// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrMissing is wrapped by validation errors for required keys.
var ErrMissing = errors.New("required")

// Role selects the behavior of the node. Anchors publish telemetry, tags only
// range.
type Role int

const (
	RoleAnchor Role = iota
	RoleTag
)

// ParseRole accepts "anchor" or "tag" (case-insensitive).
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "anchor", "a":
		return RoleAnchor, nil
	case "tag", "t":
		return RoleTag, nil
	default:
		return 0, fmt.Errorf("invalid role %q (want anchor or tag)", s)
	}
}

func (r Role) String() string {
	if r == RoleTag {
		return "tag"
	}
	return "anchor"
}

// ModuleCode is the role value the UWB module expects in AT+SETCFG.
func (r Role) ModuleCode() int {
	if r == RoleTag {
		return 0
	}
	return 1
}

// Config holds all node configuration values. It is built once by Load and
// treated as read-only afterwards.
type Config struct {
	// Node identity
	NodeID  int
	Role    Role
	AnchorX float64
	AnchorY float64
	MaxTags int

	// Serial link to the UWB module
	SerialPort    string
	SerialBaud    int
	MaxLineLength int

	// Module bring-up
	ModuleSpeed        int
	ModuleFilter       int
	ModuleSlotMillis   int
	ModuleExtended     int
	ModuleTimeout      time.Duration
	ModuleResetTimeout time.Duration

	// MQTT
	MQTTBroker         string
	MQTTUser           string
	MQTTPassword       string
	MQTTClientIDPrefix string
	MQTTConnectTimeout time.Duration
	TopicPrefix        string

	// Network link
	LinkInterface    string
	LinkReconnectCmd []string

	// Timing
	LinkRetry   time.Duration
	BrokerRetry time.Duration
	LoopPeriod  time.Duration

	// Display
	DisplayEnable bool
	DisplayI2CBus string

	// Module reset line
	ResetPin string

	// Web monitor
	WebListen     string
	WebMaxHistory int
	// WebAreaSize bounds trilaterated tag positions to [0, size] meters on
	// both axes. 0 disables clamping.
	WebAreaSize float64
}

// fileConfig mirrors the TOML layout. Only keys present in the file override
// the defaults.
type fileConfig struct {
	Node struct {
		ID      int     `toml:"id"`
		Role    string  `toml:"role"`
		X       float64 `toml:"x"`
		Y       float64 `toml:"y"`
		MaxTags int     `toml:"max_tags"`
	} `toml:"node"`
	Serial struct {
		Port    string `toml:"port"`
		Baud    int    `toml:"baud"`
		MaxLine int    `toml:"max_line"`
	} `toml:"serial"`
	Module struct {
		Speed          int `toml:"speed"`
		Filter         int `toml:"filter"`
		SlotMS         int `toml:"slot_ms"`
		Extended       int `toml:"extended"`
		TimeoutMS      int `toml:"timeout_ms"`
		ResetTimeoutMS int `toml:"restore_timeout_ms"`
	} `toml:"module"`
	MQTT struct {
		Broker           string `toml:"broker"`
		User             string `toml:"user"`
		Password         string `toml:"password"`
		ClientIDPrefix   string `toml:"client_id_prefix"`
		ConnectTimeoutMS int    `toml:"connect_timeout_ms"`
		TopicPrefix      string `toml:"topic_prefix"`
	} `toml:"mqtt"`
	Link struct {
		Interface    string   `toml:"interface"`
		ReconnectCmd []string `toml:"reconnect_cmd"`
	} `toml:"link"`
	Timing struct {
		LinkRetryMS   int `toml:"link_retry_ms"`
		BrokerRetryMS int `toml:"broker_retry_ms"`
		LoopMS        int `toml:"loop_ms"`
	} `toml:"timing"`
	Display struct {
		Enable bool   `toml:"enable"`
		I2CBus string `toml:"i2c_bus"`
	} `toml:"display"`
	Reset struct {
		Pin string `toml:"pin"`
	} `toml:"reset"`
	Web struct {
		Listen     string  `toml:"listen"`
		MaxHistory int     `toml:"max_history"`
		AreaSize   float64 `toml:"area_size"`
	} `toml:"web"`
}

// Default returns the configuration of anchor 0 at the origin, matching the
// stock firmware values.
func Default() Config {
	return Config{
		NodeID:  0,
		Role:    RoleAnchor,
		MaxTags: 64,

		SerialPort:    "/dev/ttyUSB0",
		SerialBaud:    115200,
		MaxLineLength: 512,

		ModuleSpeed:        1, // 6.8M
		ModuleFilter:       1,
		ModuleSlotMillis:   10,
		ModuleExtended:     1,
		ModuleTimeout:      2 * time.Second,
		ModuleResetTimeout: 5 * time.Second,

		MQTTBroker:         "tcp://localhost:1883",
		MQTTClientIDPrefix: "vertex-anchor-",
		MQTTConnectTimeout: 3 * time.Second,
		TopicPrefix:        "uwb/anchor",

		LinkRetry:   10 * time.Second,
		BrokerRetry: 5 * time.Second,
		LoopPeriod:  5 * time.Millisecond,

		DisplayI2CBus: "",
		WebListen:     ":8080",
		WebMaxHistory: 100,
		WebAreaSize:   10,
	}
}

// Load reads the TOML file at path on top of Default and validates the result.
func Load(path string) (*Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key: %q", undecoded[0].String())
	}

	cfg := Default()
	if err := cfg.apply(meta, &raw); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) apply(meta toml.MetaData, raw *fileConfig) error {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }

	if meta.IsDefined("node", "id") {
		c.NodeID = raw.Node.ID
	}
	if meta.IsDefined("node", "role") {
		role, err := ParseRole(raw.Node.Role)
		if err != nil {
			return err
		}
		c.Role = role
	}
	if meta.IsDefined("node", "x") {
		c.AnchorX = raw.Node.X
	}
	if meta.IsDefined("node", "y") {
		c.AnchorY = raw.Node.Y
	}
	if meta.IsDefined("node", "max_tags") {
		c.MaxTags = raw.Node.MaxTags
	}

	if meta.IsDefined("serial", "port") {
		c.SerialPort = strings.TrimSpace(raw.Serial.Port)
	}
	if meta.IsDefined("serial", "baud") {
		c.SerialBaud = raw.Serial.Baud
	}
	if meta.IsDefined("serial", "max_line") {
		c.MaxLineLength = raw.Serial.MaxLine
	}

	if meta.IsDefined("module", "speed") {
		c.ModuleSpeed = raw.Module.Speed
	}
	if meta.IsDefined("module", "filter") {
		c.ModuleFilter = raw.Module.Filter
	}
	if meta.IsDefined("module", "slot_ms") {
		c.ModuleSlotMillis = raw.Module.SlotMS
	}
	if meta.IsDefined("module", "extended") {
		c.ModuleExtended = raw.Module.Extended
	}
	if meta.IsDefined("module", "timeout_ms") {
		c.ModuleTimeout = ms(raw.Module.TimeoutMS)
	}
	if meta.IsDefined("module", "restore_timeout_ms") {
		c.ModuleResetTimeout = ms(raw.Module.ResetTimeoutMS)
	}

	if meta.IsDefined("mqtt", "broker") {
		c.MQTTBroker = strings.TrimSpace(raw.MQTT.Broker)
	}
	if meta.IsDefined("mqtt", "user") {
		c.MQTTUser = raw.MQTT.User
	}
	if meta.IsDefined("mqtt", "password") {
		c.MQTTPassword = raw.MQTT.Password
	}
	if meta.IsDefined("mqtt", "client_id_prefix") {
		c.MQTTClientIDPrefix = raw.MQTT.ClientIDPrefix
	}
	if meta.IsDefined("mqtt", "connect_timeout_ms") {
		c.MQTTConnectTimeout = ms(raw.MQTT.ConnectTimeoutMS)
	}
	if meta.IsDefined("mqtt", "topic_prefix") {
		c.TopicPrefix = strings.TrimRight(strings.TrimSpace(raw.MQTT.TopicPrefix), "/")
	}

	if meta.IsDefined("link", "interface") {
		c.LinkInterface = strings.TrimSpace(raw.Link.Interface)
	}
	if meta.IsDefined("link", "reconnect_cmd") {
		c.LinkReconnectCmd = raw.Link.ReconnectCmd
	}

	if meta.IsDefined("timing", "link_retry_ms") {
		c.LinkRetry = ms(raw.Timing.LinkRetryMS)
	}
	if meta.IsDefined("timing", "broker_retry_ms") {
		c.BrokerRetry = ms(raw.Timing.BrokerRetryMS)
	}
	if meta.IsDefined("timing", "loop_ms") {
		c.LoopPeriod = ms(raw.Timing.LoopMS)
	}

	if meta.IsDefined("display", "enable") {
		c.DisplayEnable = raw.Display.Enable
	}
	if meta.IsDefined("display", "i2c_bus") {
		c.DisplayI2CBus = raw.Display.I2CBus
	}
	if meta.IsDefined("reset", "pin") {
		c.ResetPin = strings.TrimSpace(raw.Reset.Pin)
	}
	if meta.IsDefined("web", "listen") {
		c.WebListen = raw.Web.Listen
	}
	if meta.IsDefined("web", "max_history") {
		c.WebMaxHistory = raw.Web.MaxHistory
	}
	if meta.IsDefined("web", "area_size") {
		c.WebAreaSize = raw.Web.AreaSize
	}
	return nil
}

// validate checks that all required fields are set and in range.
func (c *Config) validate() error {
	if c.NodeID < 0 || c.NodeID > 255 {
		return fmt.Errorf("node.id must be 0-255, got %d", c.NodeID)
	}
	if c.MaxTags < 1 {
		return fmt.Errorf("node.max_tags must be > 0, got %d", c.MaxTags)
	}
	if c.SerialPort == "" {
		return fmt.Errorf("serial.port is %w", ErrMissing)
	}
	if c.SerialBaud <= 0 {
		return fmt.Errorf("serial.baud must be > 0, got %d", c.SerialBaud)
	}
	if c.MaxLineLength < 0 {
		return fmt.Errorf("serial.max_line must be >= 0, got %d", c.MaxLineLength)
	}
	if c.ModuleTimeout <= 0 || c.ModuleResetTimeout <= 0 {
		return fmt.Errorf("module timeouts must be > 0")
	}
	if c.LoopPeriod <= 0 {
		return fmt.Errorf("timing.loop_ms must be > 0")
	}
	if c.WebAreaSize < 0 {
		return fmt.Errorf("web.area_size must be >= 0, got %g", c.WebAreaSize)
	}
	if c.Role == RoleAnchor {
		if c.MQTTBroker == "" {
			return fmt.Errorf("mqtt.broker is %w", ErrMissing)
		}
		if c.TopicPrefix == "" {
			return fmt.Errorf("mqtt.topic_prefix is %w", ErrMissing)
		}
		if c.LinkRetry <= 0 || c.BrokerRetry <= 0 {
			return fmt.Errorf("timing retry intervals must be > 0")
		}
	}
	return nil
}

// DataTopic is where readings of this node are published.
func (c *Config) DataTopic() string {
	return fmt.Sprintf("%s/%d", c.TopicPrefix, c.NodeID)
}

// StatusTopic carries the retained online/offline announcement.
func (c *Config) StatusTopic() string {
	return c.DataTopic() + "/status"
}

// CommandTopic receives AT commands forwarded to the module.
func (c *Config) CommandTopic() string {
	return c.DataTopic() + "/cmd"
}
