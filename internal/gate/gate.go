package gate

import (
	"context"
	"errors"
	"fmt"

	"MyFocusAI/internal/config"
	"MyFocusAI/pkg/logger"
	"MyFocusAI/pkg/models"
)

// 启动监控前的授权检查错误
// 检查按固定顺序执行，返回第一个命中的错误
var (
	ErrMissingAPIKey         = errors.New("API密钥未配置，请先在设置中配置AI服务")
	ErrMissingDetectionModel = errors.New("检测模型未配置，请先在设置中选择模型")
	ErrListsNotConfigured    = errors.New("未配置白名单和黑名单，用户取消了启动")
)

// APIUnreachableError 连通性测试失败
// 保留服务返回的原始消息，便于前端展示
type APIUnreachableError struct {
	Message string
}

func (e *APIUnreachableError) Error() string {
	return fmt.Sprintf("AI服务连接失败: %s", e.Message)
}

// ConnectionTester AI 连通性测试
type ConnectionTester interface {
	TestConnection(ctx context.Context) *models.APITestResult
}

// ConfirmFunc 软确认回调
// 白名单和黑名单都为空时询问用户是否继续，返回 false 则中止启动
type ConfirmFunc func(message string) bool

// Gate 监控启动授权门
// 启动监控前依次检查：API密钥 -> 检测模型 -> 名单软确认 -> 连通性测试。
// 全部通过后落盘本次监控的配置快照。
type Gate struct {
	cfg     *config.Manager
	tester  ConnectionTester
	confirm ConfirmFunc
}

// NewGate 创建授权门
// confirm 为 nil 时名单为空直接放行
func NewGate(cfg *config.Manager, tester ConnectionTester, confirm ConfirmFunc) *Gate {
	return &Gate{
		cfg:     cfg,
		tester:  tester,
		confirm: confirm,
	}
}

// Authorize 执行启动前授权检查，成功返回本次生效的配置快照
func (g *Gate) Authorize(ctx context.Context) (*models.MonitoringConfig, error) {
	aiCfg := g.cfg.GetAI()
	monCfg := g.cfg.GetMonitoring()

	logger.Info("🔐 开始监控启动授权检查...")

	// 1. API密钥
	if aiCfg.APIKey == "" {
		logger.Warn("⚠️ 授权失败: API密钥未配置")
		return nil, ErrMissingAPIKey
	}

	// 2. 检测模型
	if aiCfg.DetectionModel == "" {
		logger.Warn("⚠️ 授权失败: 检测模型未配置")
		return nil, ErrMissingDetectionModel
	}

	// 3. 名单软确认
	if len(monCfg.Whitelist) == 0 && len(monCfg.Blacklist) == 0 {
		if g.confirm != nil && !g.confirm("您还没有配置白名单和黑名单，AI将只根据任务和屏幕内容判断专注状态。确定要开始监控吗？") {
			logger.Info("ℹ️ 用户取消了启动")
			return nil, ErrListsNotConfigured
		}
	}

	// 4. 连通性测试
	result := g.tester.TestConnection(ctx)
	if !result.Success {
		logger.Error("❌ 授权失败: %s", result.Message)
		return nil, &APIUnreachableError{Message: result.Message}
	}
	logger.Info("✅ AI服务连通性测试通过 (%dms)", result.ResponseTimeMs)

	// 落盘本次监控会话的配置快照
	snapshot, err := g.cfg.ActivateMonitoring()
	if err != nil {
		return nil, fmt.Errorf("failed to activate monitoring config: %w", err)
	}

	logger.Info("✅ 授权检查全部通过，监控配置已生效")
	return &snapshot, nil
}
