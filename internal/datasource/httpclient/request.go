package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DoRequest 发送自定义请求
func (c *HTTPClient) DoRequest(ctx context.Context, req *Request) (*Response, error) {
	c.mu.RLock()
	running := c.running
	c.mu.RUnlock()
	if !running {
		return nil, fmt.Errorf("client '%s' is not running", c.config.Name)
	}

	// 等待速率限制令牌
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, NewHTTPError(ErrorTypeRateLimit, 0, "rate limiter wait aborted", req.URL, true, err)
	}

	// 更新统计信息
	atomic.AddInt64(&c.stats.totalRequests, 1)
	c.mu.Lock()
	c.stats.lastRequest = time.Now()
	c.mu.Unlock()

	var response *Response

	// 执行带重试的请求
	err := c.retryHandler.Execute(ctx, func() error {
		resp, err := c.doHTTPRequest(ctx, req)
		if err != nil {
			return err
		}
		response = resp
		return nil
	}, func(attempt int, err error) {
		atomic.AddInt64(&c.stats.retryCount, 1)
	})

	if err != nil {
		atomic.AddInt64(&c.stats.failedRequests, 1)
		c.mu.Lock()
		c.stats.lastError = err.Error()
		c.mu.Unlock()
		return nil, err
	}

	atomic.AddInt64(&c.stats.successRequests, 1)
	return response, nil
}

// doHTTPRequest 执行实际的HTTP请求
func (c *HTTPClient) doHTTPRequest(ctx context.Context, req *Request) (*Response, error) {
	startTime := time.Now()

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	// 创建HTTP请求
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return nil, NewHTTPError(ErrorTypeHTTP, 0, "failed to create request", req.URL, false, err)
	}

	// 设置请求头
	c.setRequestHeaders(httpReq, req)

	if c.config.Debug {
		c.logger.Debug("making request",
			zap.String("method", req.Method), zap.String("url", req.URL))
	}

	// 发送请求
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		classifiedErr := ClassifyError(err)
		classifiedErr.URL = req.URL
		return nil, classifiedErr
	}
	defer httpResp.Body.Close()

	duration := time.Since(startTime)

	if c.config.Debug {
		c.logger.Debug("got response",
			zap.Int("status", httpResp.StatusCode), zap.Duration("duration", duration))
	}

	// 读取响应体
	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewHTTPError(ErrorTypeNetwork, httpResp.StatusCode, "failed to read response body", req.URL, true, err)
	}

	// 检查HTTP状态码
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		retryable := httpResp.StatusCode >= 500 || httpResp.StatusCode == 429
		return nil, NewHTTPError(ErrorTypeHTTP, httpResp.StatusCode,
			fmt.Sprintf("HTTP error %d", httpResp.StatusCode), req.URL, retryable, nil)
	}

	// 解析响应到结果对象（Result为nil时由调用方自行解析原始字节）
	if req.Result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, req.Result); err != nil {
			return nil, NewHTTPError(ErrorTypeHTTP, httpResp.StatusCode, "failed to unmarshal response", req.URL, false, err)
		}
	}

	// 构建响应对象
	response := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    make(map[string]string),
		Body:       respBody,
		Duration:   duration,
	}

	// 复制响应头
	for key, values := range httpResp.Header {
		if len(values) > 0 {
			response.Headers[key] = values[0]
		}
	}
	return response, nil
}

// setRequestHeaders 设置请求头
func (c *HTTPClient) setRequestHeaders(httpReq *http.Request, req *Request) {
	// 设置默认请求头
	c.mu.RLock()
	for key, value := range c.defaultHeaders {
		httpReq.Header.Set(key, value)
	}
	c.mu.RUnlock()

	// 设置用户代理
	if c.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.config.UserAgent)
	}

	// 设置请求特定的头部
	if req.Headers != nil {
		for key, value := range req.Headers {
			httpReq.Header.Set(key, value)
		}
	}
}
