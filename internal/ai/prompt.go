package ai

import (
	"errors"
	"fmt"
	"strings"

	"MyFocusAI/pkg/logger"
	"MyFocusAI/pkg/models"
	"MyFocusAI/pkg/utils"
)

// ErrUnrecognizedResponse AI 返回的文本中无法识别出专注状态
// 调用方应保持当前状态，不做迁移
var ErrUnrecognizedResponse = errors.New("无法从AI响应中识别专注状态")

// buildAnalysisPrompt 构建专注状态分析提示词
// 有任务和无任务两套判断标准
func buildAnalysisPrompt(check *models.CheckContext, whitelist, blacklist []string) string {
	var prompt strings.Builder

	prompt.WriteString("请分析用户当前的专注状态和任务执行情况。\n\n")

	if check.TaskText != "" {
		prompt.WriteString(fmt.Sprintf("**当前用户任务**: %s\n\n", check.TaskText))
	} else {
		prompt.WriteString("**当前用户任务**: 无明确任务设定\n\n")
	}

	if len(whitelist) > 0 || len(blacklist) > 0 {
		prompt.WriteString("**应用使用规则**:\n")
		if len(whitelist) > 0 {
			prompt.WriteString("白名单应用（通常有助于专注）: ")
			prompt.WriteString(strings.Join(whitelist, ", "))
			prompt.WriteString("\n")
		}
		if len(blacklist) > 0 {
			prompt.WriteString("黑名单应用（通常导致分心）: ")
			prompt.WriteString(strings.Join(blacklist, ", "))
			prompt.WriteString("\n")
		}
		prompt.WriteString("\n")
	}

	appInfo := check.ApplicationName
	if appInfo == "" {
		appInfo = "未知应用"
	}
	titleInfo := check.WindowTitle
	if titleInfo == "" {
		titleInfo = "无标题"
	}
	textInfo := check.OCRText
	if textInfo == "" {
		textInfo = "无文本内容"
	}

	prompt.WriteString("**当前活动信息**:\n")
	prompt.WriteString(fmt.Sprintf("- 应用程序: %s\n", appInfo))
	prompt.WriteString(fmt.Sprintf("- 窗口标题: %s\n", titleInfo))
	prompt.WriteString(fmt.Sprintf("- 屏幕内容: %s\n", textInfo))
	prompt.WriteString(fmt.Sprintf("当前时间: %s\n\n", check.Timestamp.Format("2006-01-02 15:04:05")))

	prompt.WriteString("请根据以上信息判断用户当前的专注状态，并按以下格式回答：\n\n")
	prompt.WriteString("状态: [专注/分心/严重分心]\n")
	prompt.WriteString("分析: [详细说明判断理由]\n\n")

	prompt.WriteString("判断标准：\n")
	if check.TaskText != "" {
		prompt.WriteString("- 专注：当前活动与设定任务相关，或使用有助于任务完成的工具\n")
		prompt.WriteString("- 分心：当前活动与设定任务无关，但不影响长期目标\n")
		prompt.WriteString("- 严重分心：长时间从事与任务完全无关的活动，可能影响工作效率\n")
	} else {
		prompt.WriteString("- 专注：使用白名单中的应用，或从事提升个人能力的活动\n")
		prompt.WriteString("- 分心：使用黑名单中的应用，或从事娱乐休闲活动\n")
		prompt.WriteString("- 严重分心：长时间沉迷娱乐，可能影响个人发展\n")
	}

	return prompt.String()
}

// buildReportPrompt 构建每日报告生成提示词
func buildReportPrompt(date string, stats *models.TodayStats, results []*models.ClassificationResult) string {
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("请根据以下 %s 的专注监控数据，生成一份简短的中文每日专注报告。\n\n", date))
	prompt.WriteString("**今日统计**:\n")
	prompt.WriteString(fmt.Sprintf("- 专注时长: %d 分钟\n", stats.TotalFocusSeconds/60))
	prompt.WriteString(fmt.Sprintf("- 分心时长: %d 分钟\n", stats.TotalDistractSeconds/60))
	prompt.WriteString(fmt.Sprintf("- 专注评分: %d/100\n", stats.FocusScore))
	prompt.WriteString(fmt.Sprintf("- 分心次数: %d\n\n", stats.InterruptionCount))

	if len(results) > 0 {
		prompt.WriteString("**监控明细**（时间 / 状态 / 应用）:\n")
		for _, r := range results {
			prompt.WriteString(fmt.Sprintf("- %s / %s / %s\n",
				r.Timestamp.Format("15:04"), r.State, r.ApplicationName))
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString("报告需包含：今日专注情况总结、主要分心来源、明日改进建议。控制在300字以内。\n")
	return prompt.String()
}

// buildWeeklyReportPrompt 构建每周报告生成提示词
func buildWeeklyReportPrompt(weekStart, weekEnd string, trends []models.DailyTrend) string {
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("请根据以下 %s 至 %s 的专注监控数据，生成一份简短的中文每周专注报告。\n\n", weekStart, weekEnd))
	prompt.WriteString("**每日数据**（日期 / 专注评分 / 专注时长 / 专注会话数）:\n")
	for _, day := range trends {
		prompt.WriteString(fmt.Sprintf("- %s / %d分 / %d分钟 / %d次会话\n",
			day.Date, day.FocusScore, day.FocusSeconds/60, day.SessionCount))
	}
	prompt.WriteString("\n报告需包含：本周专注趋势总结、专注改进情况、下周改进建议。控制在400字以内。\n")
	return prompt.String()
}

// parseResponse 从 AI 响应中解析专注状态和置信度
// 优先匹配明确的 "状态:" 标识，其次按严重程度做关键词回退
func parseResponse(response string) (models.FocusState, float64, error) {
	text := strings.ToLower(response)

	if strings.Contains(text, "状态: 严重分心") || strings.Contains(text, "状态:严重分心") {
		logger.Debug("🎯 解析到明确状态: 严重分心")
		return models.StateSeverelyDistracted, 0.95, nil
	}
	if strings.Contains(text, "状态: 分心") || strings.Contains(text, "状态:分心") {
		logger.Debug("🎯 解析到明确状态: 分心")
		return models.StateDistracted, 0.90, nil
	}
	if strings.Contains(text, "状态: 专注") || strings.Contains(text, "状态:专注") {
		logger.Debug("🎯 解析到明确状态: 专注")
		return models.StateFocused, 0.90, nil
	}

	// 关键词回退，按严重程度排序
	if strings.Contains(text, "严重分心") {
		logger.Debug("🎯 关键词匹配: 严重分心")
		return models.StateSeverelyDistracted, 0.85, nil
	}
	if strings.Contains(text, "分心") {
		logger.Debug("🎯 关键词匹配: 分心")
		return models.StateDistracted, 0.75, nil
	}
	if strings.Contains(text, "专注") {
		logger.Debug("🎯 关键词匹配: 专注")
		return models.StateFocused, 0.70, nil
	}

	logger.Warn("⚠️ 无法识别AI响应中的专注状态: %s", utils.TruncateRunes(response, 100))
	return "", 0, ErrUnrecognizedResponse
}
