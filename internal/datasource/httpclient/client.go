package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPClient HTTP客户端实现
type HTTPClient struct {
	config       *Config
	httpClient   *http.Client
	retryHandler *RetryHandler
	limiter      *rate.Limiter
	logger       *zap.Logger

	// 状态管理
	mu             sync.RWMutex
	running        bool
	defaultHeaders map[string]string

	// 统计信息
	stats struct {
		totalRequests   int64
		successRequests int64
		failedRequests  int64
		retryCount      int64
		lastRequest     time.Time
		lastError       string
	}
}

// New 创建新的HTTP客户端
func New(config *Config, logger *zap.Logger) (Client, error) {
	if config == nil {
		config = DefaultConfig("httpclient")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	client := &HTTPClient{
		config:         config,
		logger:         logger.With(zap.String("client", config.Name)),
		defaultHeaders: make(map[string]string),
		running:        true,
	}

	// 初始化HTTP客户端
	client.initHTTPClient()

	// 初始化重试处理器
	client.retryHandler = NewRetryHandler(config.Retry, config.Name, client.logger)

	// 初始化速率限制器
	client.initRateLimiter()

	client.logger.Info("HTTP client initialized")
	return client, nil
}

// initHTTPClient 初始化HTTP客户端
func (c *HTTPClient) initHTTPClient() {
	transport := &http.Transport{
		MaxIdleConns:          c.config.Transport.MaxIdleConns,
		MaxIdleConnsPerHost:   c.config.Transport.MaxIdleConnsPerHost,
		MaxConnsPerHost:       c.config.Transport.MaxConnsPerHost,
		IdleConnTimeout:       c.config.Transport.IdleConnTimeout,
		TLSHandshakeTimeout:   c.config.Transport.TLSHandshakeTimeout,
		ResponseHeaderTimeout: c.config.Transport.ResponseHeaderTimeout,
		DisableKeepAlives:     c.config.Transport.DisableKeepAlives,
		DisableCompression:    c.config.Transport.DisableCompression,
		ForceAttemptHTTP2:     false, // 部分行情站点对HTTP/2支持不稳定
	}

	c.httpClient = &http.Client{
		Transport: transport,
		Timeout:   c.config.Timeout,
	}
}

// initRateLimiter 初始化速率限制器
func (c *HTTPClient) initRateLimiter() {
	if !c.config.RateLimit.Enabled {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
		return
	}
	perSecond := rate.Limit(float64(c.config.RateLimit.RequestsPerMinute) / 60.0)
	burst := c.config.RateLimit.RequestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(perSecond, burst)
}

// Get 发送GET请求并将JSON响应解析到result
func (c *HTTPClient) Get(ctx context.Context, url string, result interface{}) error {
	req := &Request{
		Method: http.MethodGet,
		URL:    url,
		Result: result,
	}
	_, err := c.DoRequest(ctx, req)
	return err
}

// GetRaw 发送GET请求并返回原始响应字节
func (c *HTTPClient) GetRaw(ctx context.Context, url string) ([]byte, error) {
	req := &Request{
		Method: http.MethodGet,
		URL:    url,
	}
	resp, err := c.DoRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// SetHeaders 设置默认请求头
func (c *HTTPClient) SetHeaders(headers map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, value := range headers {
		c.defaultHeaders[key] = value
	}
}

// GetStatus 获取客户端状态
func (c *HTTPClient) GetStatus() *Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &Status{
		Name:            c.config.Name,
		Running:         c.running,
		LastRequest:     c.stats.lastRequest,
		TotalRequests:   atomic.LoadInt64(&c.stats.totalRequests),
		SuccessRequests: atomic.LoadInt64(&c.stats.successRequests),
		FailedRequests:  atomic.LoadInt64(&c.stats.failedRequests),
		RetryCount:      atomic.LoadInt64(&c.stats.retryCount),
		LastError:       c.stats.lastError,
	}
}

// Close 关闭客户端
func (c *HTTPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false

	c.httpClient.CloseIdleConnections()
	c.logger.Info("HTTP client closed")
	return nil
}
