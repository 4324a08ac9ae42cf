package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"bookforge/internal/config"
	"bookforge/internal/notifications"
	"bookforge/internal/objectstore"
	"bookforge/internal/services/llm"
)

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single request.
func CheckLLM(ctx context.Context, name string, cfg config.LLM) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		Referer:        cfg.Referer,
		Title:          cfg.Title,
		TimeoutSeconds: cfg.TimeoutSeconds,
	})

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeNetworkError("LLM API", err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckStorage verifies that the archive bucket exists and the credentials
// can see it. It never creates the bucket.
func CheckStorage(ctx context.Context, cfg config.Storage) Result {
	const name = "Storage"

	uploader, err := objectstore.New(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if uploader == nil {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := uploader.BucketExists(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetworkError("storage endpoint", err)}
	}
	if !exists {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("bucket %s will be created on first upload", uploader.Bucket())}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("bucket %s reachable", uploader.Bucket())}
}

// CheckNotifications sends a low-priority test message to the ntfy topic.
func CheckNotifications(ctx context.Context, cfg config.Notifications) Result {
	const name = "Notifications"

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := notifications.NewService(cfg).TestNotification(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeNetworkError("ntfy", err)}
	}
	return Result{Name: name, Passed: true, Detail: "test message delivered"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeNetworkError produces a human-readable summary for health check failures.
func summarizeNetworkError(target string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("health check timed out (%s unresponsive)", target)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("health check timed out (%s unreachable)", target)
	}
	return err.Error()
}
