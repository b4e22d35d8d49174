package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sys/unix"

	"thepipe/internal/config"
	"thepipe/internal/journal"
	"thepipe/internal/pipe/endpoint"
)

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

// socketNameBudget leaves room for a reasonably long pipe name.
const socketNameBudget = 32

// CheckSocketPath verifies that sockets under dir fit the kernel's
// sockaddr_un path limit with room for a pipe name.
func CheckSocketPath(dir string) Result {
	const name = "Socket path length"
	limit := len(unix.RawSockaddrUnix{}.Path) - 1
	used := len(filepath.Join(dir, "x")) - 1
	if used+socketNameBudget > limit {
		return Result{Name: name, Detail: fmt.Sprintf("%s leaves %d of %d bytes for pipe names; set paths.runtime_dir to a shorter path", dir, limit-used, limit)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d of %d bytes available for pipe names", limit-used, limit)}
}

// CheckJournal opens the journal and runs its health check.
func CheckJournal(ctx context.Context, cfg *config.Config) Result {
	const name = "Journal"
	store, err := journal.Open(cfg)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("open failed (%v)", err)}
	}
	defer store.Close()
	health, err := store.CheckHealth(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", health.Path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (schema %s, %d entries)", health.Path, health.SchemaVersion, health.TotalEntries)}
}

// CheckEndpoint checks that the backend behind a networked endpoint answers.
// Local endpoints always pass; their socket only exists while a producer
// is waiting.
func CheckEndpoint(ctx context.Context, cfg *config.Config, id string) Result {
	switch endpoint.Classify(id) {
	case endpoint.HTTP:
		return CheckRelay(ctx, id, cfg.Relay.Token)
	case endpoint.Redis:
		return CheckRedis(ctx, id)
	case endpoint.Local:
		return Result{Name: "Pipe " + id, Passed: true, Detail: "local endpoint"}
	default:
		return Result{Name: "Pipe " + id, Detail: "unsupported endpoint scheme"}
	}
}

// CheckRelay verifies relay connectivity and authentication.
func CheckRelay(ctx context.Context, endpointURL, token string) Result {
	const name = "Relay"

	u, err := url.Parse(strings.TrimSpace(endpointURL))
	if err != nil || u.Host == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	base := u.Scheme + "://" + u.Host

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/pipes", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%v)", err)}
	}
	if token = strings.TrimSpace(token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", base)}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (check relay.token)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%d)", resp.StatusCode)}
	}
}

// CheckRedis pings the server named by a redis:// endpoint.
func CheckRedis(ctx context.Context, endpointURL string) Result {
	const name = "Redis"

	u, err := url.Parse(strings.TrimSpace(endpointURL))
	if err != nil || u.Host == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	opts, err := redis.ParseURL(u.Scheme + "://" + u.User.String() + atSign(u) + u.Host)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("bad url (%v)", err)}
	}
	opts.DialTimeout = 2 * time.Second
	client := redis.NewClient(opts)
	defer client.Close()

	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(checkCtx).Err(); err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", u.Host)}
}

func atSign(u *url.URL) string {
	if u.User == nil {
		return ""
	}
	return "@"
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (server unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (server unreachable)"
	}
	return err.Error()
}
