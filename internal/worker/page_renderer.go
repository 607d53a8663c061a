package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"phFolio/internal/render"
)

// Capturer 把一段独立 HTML 按视口参数截图为 JPEG。
type Capturer interface {
	Capture(ctx context.Context, html string, profile render.Profile) ([]byte, error)
}

// Printer 把一段独立 HTML 打印为 PDF。
type Printer interface {
	PrintPDF(ctx context.Context, html string, profile render.Profile) ([]byte, error)
}

// BrowserCapturer 使用无头 Chromium 截图，每次截图启动独立浏览器进程。
type BrowserCapturer struct {
	bin     string
	quality int
	timeout time.Duration
	logger  *slog.Logger
}

// NewBrowserCapturer 创建截图器；bin 为空时自动查找本机浏览器，找不到则由 rod 下载。
func NewBrowserCapturer(bin string, logger *slog.Logger) *BrowserCapturer {
	return &BrowserCapturer{bin: bin, quality: 80, timeout: 60 * time.Second, logger: logger}
}

// Capture 实现 Capturer。
func (b *BrowserCapturer) Capture(ctx context.Context, html string, profile render.Profile) ([]byte, error) {
	sess, err := b.start(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.close()

	if err := sess.load(html, profile, b.logger); err != nil {
		return nil, err
	}
	data, err := sess.page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: &b.quality,
	})
	if err != nil {
		return nil, fmt.Errorf("page screenshot: %w", err)
	}
	return data, nil
}

// PrintPDF 实现 Printer，保留背景色并使用页面声明的纸张尺寸。
func (b *BrowserCapturer) PrintPDF(ctx context.Context, html string, profile render.Profile) ([]byte, error) {
	sess, err := b.start(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.close()

	if err := sess.load(html, profile, b.logger); err != nil {
		return nil, err
	}
	stream, err := sess.page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pdf stream: %w", err)
	}
	return data, nil
}

// browserSession 持有一次渲染所用的浏览器进程与标签页。
type browserSession struct {
	launch  *launcher.Launcher
	browser *rod.Browser
	page    *rod.Page
}

func (b *BrowserCapturer) start(ctx context.Context) (*browserSession, error) {
	l := launcher.New().Headless(true).NoSandbox(true)
	switch {
	case b.bin != "":
		l = l.Bin(b.bin)
	default:
		if found, ok := launcher.LookPath(); ok {
			l = l.Bin(found)
		}
	}

	sess := &browserSession{launch: l}
	controlURL, err := l.Launch()
	if err != nil {
		sess.close()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	sess.browser = rod.New().ControlURL(controlURL).Context(ctx).Timeout(b.timeout)
	if err := sess.browser.Connect(); err != nil {
		sess.close()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	if sess.page, err = sess.browser.Page(proto.TargetCreateTarget{URL: "about:blank"}); err != nil {
		sess.close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	return sess, nil
}

// load 按视口设置设备参数并写入文档，等待字体加载（最多 3 秒）。
func (s *browserSession) load(html string, profile render.Profile, logger *slog.Logger) error {
	metrics := &proto.EmulationSetDeviceMetricsOverride{
		Width:             profile.WidthPx,
		Height:            profile.HeightPx,
		DeviceScaleFactor: 1,
		Mobile:            profile.Viewport == render.Mobile,
	}
	if err := s.page.SetViewport(metrics); err != nil {
		return fmt.Errorf("set viewport %s: %w", profile.Viewport, err)
	}
	if err := s.page.SetDocumentContent(html); err != nil {
		return fmt.Errorf("set document content: %w", err)
	}
	if err := s.page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	if _, err := s.page.Timeout(5 * time.Second).Eval(fontsReadyJS); err != nil {
		logger.Warn("fonts not ready, capturing anyway", slog.Any("error", err))
	}
	return nil
}

func (s *browserSession) close() {
	if s.page != nil {
		_ = s.page.Close()
	}
	if s.browser != nil {
		_ = s.browser.Close()
	}
	s.launch.Cleanup()
}

const fontsReadyJS = `() => {
  if (!document.fonts || !document.fonts.ready) return true;
  const timeout = new Promise((resolve) => setTimeout(() => resolve(true), 3000));
  return Promise.race([document.fonts.ready.then(() => true), timeout]);
}`
