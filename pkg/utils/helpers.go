package utils

import (
	"fmt"
	"strings"
)

// TruncateRunes 按字符数截断字符串
// OCR 文本常含中文，必须按 rune 截断避免切坏 UTF-8
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

// CompactWhitespace 合并连续空白字符
// 用于压缩 OCR 文本，减少提示词长度
func CompactWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// MaskKey 对密钥做脱敏处理，用于日志输出
func MaskKey(key string) string {
	if len(key) > 8 {
		return key[:8] + "***"
	}
	if key == "" {
		return "(未设置)"
	}
	return "***"
}

// FormatBytes 格式化字节大小
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
