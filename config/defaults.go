// =============================================================================
// 📦 fedbroker 默认配置
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Broker:    DefaultBrokerConfig(),
		Client:    DefaultClientConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    200,
		RateLimitBurst:  400,
	}
}

// DefaultBrokerConfig 返回默认 broker 配置
func DefaultBrokerConfig() BrokerConfig {
	return BrokerConfig{
		PollInterval:    50 * time.Millisecond,
		MaxPayloadBytes: 16 << 20,
	}
}

// DefaultClientConfig 返回默认客户端配置
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BrokerURL:      "http://localhost:8080",
		PollInterval:   100 * time.Millisecond,
		RequestTimeout: 10 * time.Second,
		ReceiveTimeout: time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "fedbroker",
		SampleRate:   0.1,
	}
}
