package config

import "time"

// ServerConfig describes the game server the client talks to.
type ServerConfig struct {
	// Origin stands in for the hosting page's location: REST calls and the
	// socket address are resolved against it.
	Origin      string        `mapstructure:"ORIGIN"       json:"origin"       validate:"required,origin_url"`
	HTTPTimeout time.Duration `mapstructure:"HTTP_TIMEOUT" json:"http_timeout" validate:"required,reasonable_duration"`
}

// TransportConfig holds the socket transport boundary settings.
type TransportConfig struct {
	HandshakeTimeout time.Duration `mapstructure:"HANDSHAKE_TIMEOUT" json:"handshake_timeout" validate:"required,reasonable_duration"`
	WriteTimeout     time.Duration `mapstructure:"WRITE_TIMEOUT"     json:"write_timeout"     validate:"required,reasonable_duration"`
	ReadLimit        int64         `mapstructure:"READ_LIMIT"        json:"read_limit"        validate:"required,min=1024,max=33554432"`
}

// ConnectionConfig holds connection manager settings.
type ConnectionConfig struct {
	HistorySize int `mapstructure:"HISTORY_SIZE" json:"history_size" validate:"required,min=1,max=100000"`
	// SendRate is the outbound frames per second; 0 disables the limit.
	SendRate  float64 `mapstructure:"SEND_RATE"  json:"send_rate"  validate:"min=0,max=10000"`
	SendBurst int     `mapstructure:"SEND_BURST" json:"send_burst" validate:"min=0,max=1000"`
}

// JoinConfig holds join workflow settings.
type JoinConfig struct {
	SettleDelay time.Duration `mapstructure:"SETTLE_DELAY" json:"settle_delay" validate:"settle_duration"`
}
