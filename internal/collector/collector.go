package collector

import (
	"context"
	"errors"
	"time"

	"MyFocusAI/internal/config"
	"MyFocusAI/pkg/logger"
	"MyFocusAI/pkg/models"
	"MyFocusAI/pkg/screenstate"
	"MyFocusAI/pkg/utils"
)

// ErrScreenInactive 屏幕锁定或屏保运行中，本次检查跳过
var ErrScreenInactive = errors.New("屏幕未激活，跳过本次检查")

// Collector 检查上下文采集器
// 采集前台应用、窗口标题和屏幕文本。除屏幕未激活外，
// 任何单项采集失败都降级为空值，不阻断检查循环。
type Collector struct {
	cfg *config.Manager
}

// NewCollector 创建采集器
func NewCollector(cfg *config.Manager) *Collector {
	return &Collector{cfg: cfg}
}

// Collect 采集一次检查上下文
func (c *Collector) Collect(ctx context.Context, taskText string) (*models.CheckContext, error) {
	if !screenstate.IsScreenActive() {
		return nil, ErrScreenInactive
	}

	check := &models.CheckContext{
		TaskText:  taskText,
		Timestamp: time.Now(),
	}

	appName, windowTitle, err := foregroundWindow()
	if err != nil {
		logger.Warn("⚠️ 获取前台窗口失败: %v", err)
	} else {
		check.ApplicationName = appName
		check.WindowTitle = windowTitle
	}

	captureCfg := c.cfg.GetCapture()
	if captureCfg.ScreenshotEnabled && captureCfg.OCREnabled {
		text, err := c.captureScreenText(ctx, &captureCfg)
		if err != nil {
			logger.Warn("⚠️ 屏幕文本识别失败: %v", err)
		} else {
			check.OCRText = utils.TruncateRunes(utils.CompactWhitespace(text), captureCfg.MaxOCRChars)
		}
	}

	logger.Debug("📸 上下文采集完成: 应用=%s, 标题=%s, OCR=%d字符",
		check.ApplicationName, check.WindowTitle, len([]rune(check.OCRText)))
	return check, nil
}
