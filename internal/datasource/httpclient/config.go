package httpclient

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig(name string) *Config {
	return &Config{
		Name:      name,
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) stock-analyzer/1.0",
		Timeout:   15 * time.Second,
		Retry:     DefaultRetryConfig(),
		RateLimit: DefaultRateLimitConfig(),
		Transport: DefaultTransportConfig(),
		Debug:     false,
	}
}

// DefaultRetryConfig 返回默认重试配置
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		Enabled:       true,
		MaxAttempts:   3,
		InitialDelay:  time.Second,
		MaxDelay:      8 * time.Second,
		BackoffFactor: 2.0,
	}
}

// DefaultRateLimitConfig 返回默认速率限制配置
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 120, // 行情接口默认限制
	}
}

// DefaultTransportConfig 返回默认传输配置
func DefaultTransportConfig() *TransportConfig {
	return &TransportConfig{
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       15,
		IdleConnTimeout:       60 * time.Second,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		DisableKeepAlives:     false,
		DisableCompression:    false,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Name == "" {
		c.Name = "httpclient"
	}

	if c.UserAgent == "" {
		c.UserAgent = "stock-analyzer/1.0"
	}

	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}

	if c.Retry == nil {
		c.Retry = DefaultRetryConfig()
	}

	if c.RateLimit == nil {
		c.RateLimit = DefaultRateLimitConfig()
	}

	if c.Transport == nil {
		c.Transport = DefaultTransportConfig()
	}

	// 验证重试配置
	if c.Retry.MaxAttempts < 1 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.InitialDelay <= 0 {
		c.Retry.InitialDelay = time.Second
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = 8 * time.Second
	}
	if c.Retry.BackoffFactor <= 0 {
		c.Retry.BackoffFactor = 2.0
	}

	// 验证速率限制配置
	if c.RateLimit.RequestsPerMinute < 1 {
		c.RateLimit.RequestsPerMinute = 60
	}

	// 验证传输配置
	if c.Transport.MaxIdleConns < 1 {
		c.Transport.MaxIdleConns = 50
	}
	if c.Transport.MaxIdleConnsPerHost < 1 {
		c.Transport.MaxIdleConnsPerHost = 10
	}
	if c.Transport.MaxConnsPerHost < 1 {
		c.Transport.MaxConnsPerHost = 15
	}
	if c.Transport.IdleConnTimeout <= 0 {
		c.Transport.IdleConnTimeout = 60 * time.Second
	}
	if c.Transport.TLSHandshakeTimeout <= 0 {
		c.Transport.TLSHandshakeTimeout = 15 * time.Second
	}
	if c.Transport.ResponseHeaderTimeout <= 0 {
		c.Transport.ResponseHeaderTimeout = 15 * time.Second
	}
	return nil
}
