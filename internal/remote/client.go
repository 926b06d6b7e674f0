package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/TencentBlueKing/bk-monitor-sub008/internal/config"
	"github.com/TencentBlueKing/bk-monitor-sub008/pkg/logger"
)

// apiResponse 蓝鲸接口统一返回结构
type apiResponse struct {
	Result  bool            `json:"result"`
	Code    interface{}     `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// APIError 远程接口返回的业务错误
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error code=%s message=%s", e.Code, e.Message)
}

// client 外部服务HTTP客户端
type client struct {
	baseURL    string
	appCode    string
	appSecret  string
	httpClient *http.Client
}

func newClient(baseURL string, cfg config.RemoteConfig) *client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		appCode:   cfg.AppCode,
		appSecret: cfg.AppSecret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// call 发送请求并解包蓝鲸统一返回结构，result=false 时返回 APIError
func (c *client) call(ctx context.Context, method, path string, params interface{}, out interface{}) error {
	var body bytes.Buffer
	if params != nil {
		if err := json.NewEncoder(&body).Encode(params); err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.appCode != "" {
		req.Header.Set("X-Bkapi-Authorization",
			fmt.Sprintf(`{"bk_app_code":"%s","bk_app_secret":"%s"}`, c.appCode, c.appSecret))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response of %s: %w", path, err)
	}
	if !envelope.Result {
		code := fmt.Sprintf("%v", envelope.Code)
		logger.Warnf("api %s returned error code=%s message=%s", path, code, envelope.Message)
		return &APIError{Code: code, Message: envelope.Message}
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode data of %s: %w", path, err)
		}
	}
	return nil
}
