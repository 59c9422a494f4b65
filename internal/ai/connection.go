package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"MyFocusAI/pkg/logger"
	"MyFocusAI/pkg/models"
)

// TestConnection 测试 AI 服务连通性
// 各服务测试方式不同：OpenAI 兼容走 /models，Ollama 走 /api/tags，
// Claude 没有模型列表端点，发送一条最小消息
func (c *Client) TestConnection(ctx context.Context) *models.APITestResult {
	aiCfg := c.cfg.GetAI()
	start := time.Now()

	if aiCfg.APIKey == "" {
		return &models.APITestResult{
			Success: false,
			Message: "API Key不能为空",
		}
	}

	logger.Info("🧪 开始测试API连接 - 类型: %s, URL: %s", aiCfg.APIType, aiCfg.APIURL)

	switch aiCfg.APIType {
	case models.APITypeOpenAI:
		return c.testOpenAI(ctx, &aiCfg, start)
	case models.APITypeOllama:
		return c.testOllama(ctx, &aiCfg, start)
	case models.APITypeClaude:
		return c.testClaude(ctx, &aiCfg, start)
	default:
		return &models.APITestResult{
			Success:        false,
			Message:        fmt.Sprintf("不支持的API类型: %s", aiCfg.APIType),
			ResponseTimeMs: time.Since(start).Milliseconds(),
		}
	}
}

// testOpenAI 通过模型列表端点测试 OpenAI 兼容服务
func (c *Client) testOpenAI(ctx context.Context, aiCfg *models.AIConfig, start time.Time) *models.APITestResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, aiCfg.APIURL+"/models", nil)
	if err != nil {
		return &models.APITestResult{Success: false, Message: fmt.Sprintf("连接失败: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+aiCfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		logger.Error("❌ OpenAI API网络连接失败: %v", err)
		return &models.APITestResult{
			Success:        false,
			Message:        fmt.Sprintf("连接失败: %v", err),
			ResponseTimeMs: elapsed,
		}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Error("❌ OpenAI API测试失败: %d - %s", resp.StatusCode, string(body))
		return &models.APITestResult{
			Success:        false,
			Message:        fmt.Sprintf("API返回错误: %d - %s", resp.StatusCode, string(body)),
			ResponseTimeMs: elapsed,
		}
	}

	var result struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		logger.Warn("⚠️ OpenAI API连接成功，但无法解析模型列表")
		return &models.APITestResult{
			Success:        true,
			Message:        "连接成功，但无法解析模型列表",
			ResponseTimeMs: elapsed,
		}
	}

	logger.Info("✅ OpenAI API连接成功，找到 %d 个模型", len(result.Data))
	return &models.APITestResult{
		Success:        true,
		Message:        fmt.Sprintf("连接成功！找到 %d 个可用模型", len(result.Data)),
		ResponseTimeMs: elapsed,
	}
}

// testOllama 通过 /api/tags 测试 Ollama 本地服务，不需要认证
func (c *Client) testOllama(ctx context.Context, aiCfg *models.AIConfig, start time.Time) *models.APITestResult {
	baseURL := strings.Replace(aiCfg.APIURL, "/v1", "", 1)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return &models.APITestResult{Success: false, Message: fmt.Sprintf("Ollama连接失败: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		logger.Error("❌ Ollama API网络连接失败: %v", err)
		return &models.APITestResult{
			Success:        false,
			Message:        fmt.Sprintf("Ollama连接失败: %v - 请检查Ollama是否运行在 %s", err, aiCfg.APIURL),
			ResponseTimeMs: elapsed,
		}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Error("❌ Ollama API测试失败: %d", resp.StatusCode)
		return &models.APITestResult{
			Success:        false,
			Message:        fmt.Sprintf("Ollama API错误: %d - 请确认Ollama服务已启动", resp.StatusCode),
			ResponseTimeMs: elapsed,
		}
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		logger.Warn("⚠️ Ollama API连接成功，但响应格式异常")
		return &models.APITestResult{
			Success:        true,
			Message:        "Ollama连接成功，但无法解析模型列表",
			ResponseTimeMs: elapsed,
		}
	}

	logger.Info("✅ Ollama API连接成功，找到 %d 个模型", len(result.Models))
	return &models.APITestResult{
		Success:        true,
		Message:        fmt.Sprintf("Ollama连接成功！找到 %d 个本地模型", len(result.Models)),
		ResponseTimeMs: elapsed,
	}
}

// testClaude 发送最小消息测试 Claude API
func (c *Client) testClaude(ctx context.Context, aiCfg *models.AIConfig, start time.Time) *models.APITestResult {
	const testModel = "claude-3-haiku-20240307"

	reqBody := map[string]interface{}{
		"model":      testModel,
		"max_tokens": 10,
		"messages": []map[string]string{
			{"role": "user", "content": "Hi"},
		},
	}
	data, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, aiCfg.APIURL+"/messages", bytes.NewReader(data))
	if err != nil {
		return &models.APITestResult{Success: false, Message: fmt.Sprintf("Claude连接失败: %v", err)}
	}
	req.Header.Set("x-api-key", aiCfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		logger.Error("❌ Claude API网络连接失败: %v", err)
		return &models.APITestResult{
			Success:        false,
			Message:        fmt.Sprintf("Claude连接失败: %v", err),
			ResponseTimeMs: elapsed,
		}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		logger.Info("✅ Claude API连接成功")
		return &models.APITestResult{
			Success:        true,
			Message:        "Claude API连接成功！",
			ResponseTimeMs: elapsed,
			ModelUsed:      testModel,
		}
	}

	var message string
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		message = "Claude API认证失败 - 请检查API密钥是否正确"
	case http.StatusForbidden:
		message = "Claude API访问被拒绝 - 请检查API密钥权限"
	default:
		message = fmt.Sprintf("Claude API错误: %d - %s", resp.StatusCode, string(body))
	}
	logger.Error("❌ Claude API测试失败: %d - %s", resp.StatusCode, string(body))

	return &models.APITestResult{
		Success:        false,
		Message:        message,
		ResponseTimeMs: elapsed,
	}
}
