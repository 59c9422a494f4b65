package collector

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"strings"

	"MyFocusAI/pkg/logger"
	"MyFocusAI/pkg/models"

	"github.com/kbinani/screenshot"
	"github.com/nfnt/resize"
)

// captureScreenText 截取主屏幕并通过 tesseract 识别文本
// tesseract 未安装时返回错误，由调用方降级为无文本上下文
func (c *Collector) captureScreenText(ctx context.Context, cfg *models.CaptureConfig) (string, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return "", fmt.Errorf("no active displays")
	}

	// 只截主屏幕，前台窗口几乎总在主屏
	bounds := screenshot.GetDisplayBounds(0)
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return "", fmt.Errorf("screenshot failed: %w", err)
	}

	// 缩放降低 OCR 耗时
	var scaled image.Image = img
	if cfg.DownscaleWidth > 0 && bounds.Dx() > cfg.DownscaleWidth {
		scaled = resize.Resize(uint(cfg.DownscaleWidth), 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	opt := jpeg.Options{Quality: cfg.JPEGQuality}
	if err := jpeg.Encode(&buf, scaled, &opt); err != nil {
		return "", fmt.Errorf("failed to encode JPEG: %w", err)
	}

	return runTesseract(ctx, buf.Bytes())
}

// runTesseract 调用命令行 tesseract 识别图片文本
func runTesseract(ctx context.Context, jpegData []byte) (string, error) {
	tmpFile, err := os.CreateTemp("", "myfocus_screen_*.jpg")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(jpegData); err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	tmpFile.Close()

	// stdout 输出模式，中英混合识别
	cmd := exec.CommandContext(ctx, "tesseract", tmpPath, "stdout", "-l", "chi_sim+eng")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w", err)
	}

	text := strings.TrimSpace(string(out))
	logger.Debug("🔍 OCR识别完成: %d 字符", len([]rune(text)))
	return text, nil
}
