package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// Config holds browser launch configuration.
type Config struct {
	CDPAddress string
	CDPPort    int
	// Binary overrides browser detection.
	Binary string
	// URLs are the chart pages to show. The first opens with the browser;
	// the rest are handed to the TabOpener once CDP is up.
	URLs       []string
	ProfileDir string
	WindowSize string
	// ReadyTimeout bounds the wait for the CDP endpoint.
	ReadyTimeout time.Duration
}

// TabOpener opens an extra chart window over CDP.
type TabOpener interface {
	OpenTab(ctx context.Context, url string) error
}

// Launcher owns a browser process started for the synced chart windows.
type Launcher struct {
	cfg Config

	mu  sync.Mutex
	cmd *exec.Cmd
}

var browserCandidates = []string{"chromium-browser", "chromium", "google-chrome", "google-chrome-stable"}

const macChrome = "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"

// lookPath is replaced in tests.
var lookPath = exec.LookPath

func NewLauncher(cfg Config) *Launcher {
	if cfg.WindowSize == "" {
		cfg.WindowSize = "1920,1080"
	}
	if cfg.ProfileDir == "" {
		cfg.ProfileDir = "./browser_profile"
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 15 * time.Second
	}
	return &Launcher{cfg: cfg}
}

func (l *Launcher) binary() (string, error) {
	if l.cfg.Binary != "" {
		return lookPath(l.cfg.Binary)
	}
	for _, name := range browserCandidates {
		if path, err := lookPath(name); err == nil {
			return path, nil
		}
	}
	if runtime.GOOS == "darwin" {
		if _, err := os.Stat(macChrome); err == nil {
			return macChrome, nil
		}
	}
	return "", fmt.Errorf("no supported browser found (tried %v)", browserCandidates)
}

func (l *Launcher) cdpHostPort() string {
	return net.JoinHostPort(l.cfg.CDPAddress, strconv.Itoa(l.cfg.CDPPort))
}

func (l *Launcher) cdpBusy() bool {
	conn, err := net.DialTimeout("tcp", l.cdpHostPort(), time.Second)
	if err != nil {
		return false
	}
	if err := conn.Close(); err != nil {
		slog.Debug("browser port probe close failed", "error", err)
	}
	return true
}

// args builds the browser command line. Chart windows sit side by side and
// mostly unfocused, so renderer and timer throttling for background and
// occluded windows is disabled; otherwise peers would lag the cursor.
func (l *Launcher) args() []string {
	args := []string{
		"--remote-debugging-port=" + strconv.Itoa(l.cfg.CDPPort),
		"--remote-debugging-address=" + l.cfg.CDPAddress,
		"--user-data-dir=" + l.cfg.ProfileDir,
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-dev-shm-usage",
		"--disable-background-timer-throttling",
		"--disable-backgrounding-occluded-windows",
		"--disable-renderer-backgrounding",
		"--window-size=" + l.cfg.WindowSize,
	}
	if len(l.cfg.URLs) > 0 {
		args = append(args, l.cfg.URLs[0])
	}
	return args
}

// Launch starts the browser unless something already listens on the CDP
// port, in which case that browser is used as is.
func (l *Launcher) Launch(ctx context.Context) error {
	if l.cdpBusy() {
		slog.Info("browser already running, skipping launch", "cdp", l.cdpHostPort())
		return nil
	}

	path, err := l.binary()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(l.cfg.ProfileDir, 0o755); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}

	cmd := exec.Command(path, l.args()...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	l.mu.Lock()
	l.cmd = cmd
	l.mu.Unlock()
	slog.Info("browser process started", "path", path, "pid", cmd.Process.Pid, "charts", len(l.cfg.URLs))

	if err := l.waitForCDP(ctx); err != nil {
		l.Stop()
		return fmt.Errorf("waiting for CDP: %w", err)
	}
	slog.Info("CDP endpoint ready", "cdp", l.cdpHostPort())
	return nil
}

// OpenRemaining opens every configured URL after the first and returns how
// many failed. A failure does not stop the rest.
func (l *Launcher) OpenRemaining(ctx context.Context, opener TabOpener) int {
	failed := 0
	for i, url := range l.cfg.URLs {
		if i == 0 {
			continue
		}
		if err := opener.OpenTab(ctx, url); err != nil {
			slog.Warn("failed to open chart window", "index", i, "url", url, "error", err)
			failed++
			continue
		}
		slog.Info("opened chart window", "index", i, "url", url)
	}
	return failed
}

func (l *Launcher) waitForCDP(ctx context.Context) error {
	url := "http://" + l.cdpHostPort() + "/json/version"
	ctx, cancel := context.WithTimeout(ctx, l.cfg.ReadyTimeout)
	defer cancel()

	client := &http.Client{Timeout: time.Second}
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("CDP not ready within %s at %s", l.cfg.ReadyTimeout, url)
			}
			return ctx.Err()
		case <-ticker.C:
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			continue
		}
		if err := resp.Body.Close(); err != nil {
			slog.Debug("CDP probe body close failed", "error", err)
		}
		if resp.StatusCode == http.StatusOK {
			return nil
		}
	}
}

// Running reports whether this launcher owns a live browser process.
func (l *Launcher) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cmd != nil
}

// Stop sends SIGTERM and escalates to SIGKILL after five seconds.
func (l *Launcher) Stop() {
	l.mu.Lock()
	cmd := l.cmd
	l.cmd = nil
	l.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return
	}

	pid := cmd.Process.Pid
	slog.Info("stopping browser", "pid", pid)
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		slog.Debug("browser SIGTERM failed", "pid", pid, "error", err)
	}
	done := make(chan struct{})
	go func() {
		if err := cmd.Wait(); err != nil {
			slog.Debug("browser exited", "pid", pid, "error", err)
		}
		close(done)
	}()

	select {
	case <-done:
		slog.Info("browser stopped", "pid", pid)
	case <-time.After(5 * time.Second):
		slog.Warn("browser did not exit, sending SIGKILL", "pid", pid)
		if err := cmd.Process.Kill(); err != nil {
			slog.Debug("browser SIGKILL failed", "pid", pid, "error", err)
		}
		<-done
	}
}
