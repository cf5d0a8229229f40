package config

import "time"

type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size"`
	PingInterval    time.Duration `yaml:"ping_interval"`
	PongTimeout     time.Duration `yaml:"pong_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	MaxMessageSize  int64         `yaml:"max_message_size"`
}

func loadWebSocketConfig() *WebSocketConfig {
	return &WebSocketConfig{
		ReadBufferSize:  getEnvAsInt("WEBSOCKET_READ_BUFFER_SIZE", 1024),
		WriteBufferSize: getEnvAsInt("WEBSOCKET_WRITE_BUFFER_SIZE", 1024),
		PingInterval:    getEnvAsDuration("WEBSOCKET_PING_INTERVAL", 54*time.Second),
		PongTimeout:     getEnvAsDuration("WEBSOCKET_PONG_TIMEOUT", 60*time.Second),
		WriteTimeout:    getEnvAsDuration("WEBSOCKET_WRITE_TIMEOUT", 10*time.Second),
		MaxMessageSize:  int64(getEnvAsInt("WEBSOCKET_MAX_MESSAGE_SIZE", 1024)),
	}
}
