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

	"MyFocusAI/internal/config"
	"MyFocusAI/pkg/logger"
	"MyFocusAI/pkg/models"
	"MyFocusAI/pkg/utils"
)

// Client AI 客户端
// 支持 OpenAI 兼容、Ollama 本地、Claude 三种服务
type Client struct {
	cfg        *config.Manager
	httpClient *http.Client
}

// NewClient 创建 AI 客户端
func NewClient(cfg *config.Manager) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// Classify 分析一次检查循环采集到的上下文，返回专注状态分类结果
// 任何失败都返回错误，由调用方决定是否保持当前状态
func (c *Client) Classify(ctx context.Context, check *models.CheckContext, whitelist, blacklist []string) (*models.ClassificationResult, error) {
	aiCfg := c.cfg.GetAI()

	prompt := buildAnalysisPrompt(check, whitelist, blacklist)
	logger.Debug("📏 发送的提示词长度: %d 字符", len([]rune(prompt)))

	start := time.Now()
	response, err := c.complete(ctx, &aiCfg, aiCfg.DetectionModel, prompt)
	if err != nil {
		return nil, fmt.Errorf("AI分析失败: %w", err)
	}
	logger.Debug("⏱️ API调用耗时: %v, 响应长度: %d 字符", time.Since(start), len([]rune(response)))

	state, confidence, err := parseResponse(response)
	if err != nil {
		return nil, err
	}

	result := &models.ClassificationResult{
		Timestamp:       check.Timestamp,
		State:           state,
		Confidence:      confidence,
		ApplicationName: check.ApplicationName,
		WindowTitle:     check.WindowTitle,
		AIAnalysis:      response,
	}

	logger.Info("✅ AI分析完成: %s (置信度: %.2f)", state, confidence)
	return result, nil
}

// GenerateReport 使用报告模型生成每日总结
func (c *Client) GenerateReport(ctx context.Context, date string, stats *models.TodayStats, results []*models.ClassificationResult) (*models.DailyReport, error) {
	aiCfg := c.cfg.GetAI()

	prompt := buildReportPrompt(date, stats, results)
	content, err := c.complete(ctx, &aiCfg, aiCfg.ReportModel, prompt)
	if err != nil {
		return nil, fmt.Errorf("报告生成失败: %w", err)
	}

	return &models.DailyReport{
		Date:    date,
		Content: content,
		Model:   aiCfg.ReportModel,
	}, nil
}

// GenerateWeeklyReport 使用报告模型生成每周总结
// trends 按日期升序，只包含有监控数据的日期
func (c *Client) GenerateWeeklyReport(ctx context.Context, weekStart, weekEnd string, trends []models.DailyTrend) (*models.WeeklyReport, error) {
	aiCfg := c.cfg.GetAI()

	prompt := buildWeeklyReportPrompt(weekStart, weekEnd, trends)
	content, err := c.complete(ctx, &aiCfg, aiCfg.ReportModel, prompt)
	if err != nil {
		return nil, fmt.Errorf("周报告生成失败: %w", err)
	}

	return &models.WeeklyReport{
		WeekStart: weekStart,
		WeekEnd:   weekEnd,
		Content:   content,
		Model:     aiCfg.ReportModel,
	}, nil
}

// complete 按 API 类型分发一次补全请求
func (c *Client) complete(ctx context.Context, aiCfg *models.AIConfig, model, prompt string) (string, error) {
	logger.Debug("🤖 准备调用AI API - 类型: %s, 模型: %s, Key: %s",
		aiCfg.APIType, model, utils.MaskKey(aiCfg.APIKey))

	switch aiCfg.APIType {
	case models.APITypeOpenAI:
		return c.callOpenAI(ctx, aiCfg, model, prompt)
	case models.APITypeOllama:
		return c.callOllama(ctx, aiCfg, model, prompt)
	case models.APITypeClaude:
		return c.callClaude(ctx, aiCfg, model, prompt)
	default:
		return "", fmt.Errorf("不支持的API类型: %s", aiCfg.APIType)
	}
}

// callOpenAI 调用 OpenAI 兼容 API
func (c *Client) callOpenAI(ctx context.Context, aiCfg *models.AIConfig, model, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  500,
		"temperature": 0.3,
	}

	body, err := c.postJSON(ctx, aiCfg.APIURL+"/chat/completions", reqBody, map[string]string{
		"Authorization": "Bearer " + aiCfg.APIKey,
	})
	if err != nil {
		return "", err
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("JSON解析失败: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("AI响应格式解析失败: 没有choices")
	}
	return result.Choices[0].Message.Content, nil
}

// callOllama 调用 Ollama 本地 API
// Ollama 的原生端点不带 /v1 前缀
func (c *Client) callOllama(ctx context.Context, aiCfg *models.AIConfig, model, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model":  model,
		"prompt": prompt,
		"stream": false,
	}

	baseURL := strings.Replace(aiCfg.APIURL, "/v1", "", 1)
	body, err := c.postJSON(ctx, baseURL+"/api/generate", reqBody, nil)
	if err != nil {
		return "", err
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("Ollama JSON解析失败: %w", err)
	}
	if result.Response == "" {
		return "", fmt.Errorf("Ollama响应格式解析失败")
	}
	return result.Response, nil
}

// callClaude 调用 Claude API
func (c *Client) callClaude(ctx context.Context, aiCfg *models.AIConfig, model, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model":      model,
		"max_tokens": 500,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	body, err := c.postJSON(ctx, aiCfg.APIURL+"/messages", reqBody, map[string]string{
		"x-api-key":         aiCfg.APIKey,
		"anthropic-version": "2023-06-01",
	})
	if err != nil {
		return "", err
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("Claude JSON解析失败: %w", err)
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("Claude响应格式解析失败")
	}
	return result.Content[0].Text, nil
}

// postJSON 发送 JSON POST 请求并返回响应体
func (c *Client) postJSON(ctx context.Context, url string, reqBody interface{}, headers map[string]string) ([]byte, error) {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("网络请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API请求失败: %d - %s", resp.StatusCode, string(body))
	}
	return body, nil
}
