package github

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/maniishbhusal/TrustChain/internal/cache"
	"github.com/maniishbhusal/TrustChain/internal/logger"
)

const (
	// CloneTimeout bounds a single git clone
	CloneTimeout = 5 * time.Minute

	cloneHostDefault = "https://github.com"
)

// CloneHandle points at a local working copy
type CloneHandle struct {
	Path     string    `json:"path"`
	ClonedAt time.Time `json:"cloned_at"`
}

// Exists reports whether the working copy is still on disk
func (h *CloneHandle) Exists() bool {
	if h == nil || h.Path == "" {
		return false
	}
	info, err := os.Stat(h.Path)
	return err == nil && info.IsDir()
}

// CloneError describes a failed git clone
type CloneError struct {
	Message   string
	LogOutput string
	Cause     error
}

func (e *CloneError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CloneError) Unwrap() error {
	return e.Cause
}

// CloneOptions configures a CloneManager
type CloneOptions struct {
	Root  string        // directory holding <user>/<repo>-<nanos> working copies
	Host  string        // clone host, default https://github.com
	Token string        // optional, sent as an HTTP extra header
	TTL   time.Duration // handle cache lifetime, also the reap age
	Git   string        // git binary, default "git"
}

// CloneManager runs full git clones and remembers handles in the evidence cache
type CloneManager struct {
	opts  CloneOptions
	cache cache.Cache
	log   zerolog.Logger
	now   func() time.Time
}

// NewCloneManager creates a manager; a nil cache disables handle reuse
func NewCloneManager(o CloneOptions, c cache.Cache) *CloneManager {
	if o.Root == "" {
		o.Root = filepath.Join(os.TempDir(), "trustchain-clones")
	}
	if o.Host == "" {
		o.Host = cloneHostDefault
	}
	o.Host = strings.TrimRight(o.Host, "/")
	if o.Git == "" {
		o.Git = "git"
	}
	if c == nil {
		c = cache.Nop{}
	}
	return &CloneManager{opts: o, cache: c, log: logger.Named("clone"), now: time.Now}
}

// CloneRepository returns a working copy of user/repo. A cached handle whose
// directory vanished is discarded and the clone redone. Every failure yields (nil, false).
func (m *CloneManager) CloneRepository(ctx context.Context, user, repo string) (*CloneHandle, bool) {
	key := cache.Key("github", "clone", user, repo)

	if h, ok, err := cache.GetJSON[CloneHandle](ctx, m.cache, key); err == nil && ok {
		if h.Exists() {
			return &h, true
		}
		m.log.Debug().Str("path", h.Path).Msg("cached clone vanished, recloning")
	}

	h, err := m.clone(ctx, user, repo)
	if err != nil {
		m.log.Warn().Err(err).Str("user", user).Str("repo", repo).Msg("clone failed")
		return nil, false
	}

	if err := cache.SetJSON(ctx, m.cache, key, h, m.opts.TTL); err != nil {
		m.log.Warn().Err(err).Str("key", key).Msg("failed to cache clone handle")
	}
	return h, true
}

func (m *CloneManager) clone(ctx context.Context, user, repo string) (*CloneHandle, error) {
	if _, err := exec.LookPath(m.opts.Git); err != nil {
		return nil, &CloneError{Message: "git not found in PATH", Cause: err}
	}

	parent := filepath.Join(m.opts.Root, safeSegment(user))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, &CloneError{Message: fmt.Sprintf("failed to create clone directory %s", parent), Cause: err}
	}

	now := m.now()
	dest := filepath.Join(parent, fmt.Sprintf("%s-%d", safeSegment(repo), now.UnixNano()))
	src := fmt.Sprintf("%s/%s/%s.git", m.opts.Host, user, repo)

	ctx, cancel := context.WithTimeout(ctx, CloneTimeout)
	defer cancel()

	args := []string{}
	if m.opts.Token != "" && strings.HasPrefix(m.opts.Host, "https://") {
		args = append(args, "-c", "http.extraHeader=Authorization: token "+m.opts.Token)
	}
	args = append(args, "clone", "--quiet", src, dest)

	cmd := exec.CommandContext(ctx, m.opts.Git, args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var out strings.Builder
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		_ = os.RemoveAll(dest)
		return nil, &CloneError{Message: fmt.Sprintf("git clone %s/%s failed", user, repo), LogOutput: out.String(), Cause: err}
	}

	return &CloneHandle{Path: dest, ClonedAt: now}, nil
}

// Reap removes working copies older than maxAge (the clone TTL when zero)
// and returns how many were removed.
func (m *CloneManager) Reap(maxAge time.Duration) int {
	if maxAge <= 0 {
		maxAge = m.opts.TTL
	}
	if maxAge <= 0 {
		return 0
	}
	cutoff := m.now().Add(-maxAge)

	users, err := os.ReadDir(m.opts.Root)
	if err != nil {
		return 0
	}

	removed := 0
	for _, u := range users {
		if !u.IsDir() {
			continue
		}
		userDir := filepath.Join(m.opts.Root, u.Name())
		clones, err := os.ReadDir(userDir)
		if err != nil {
			continue
		}
		for _, c := range clones {
			if !c.IsDir() {
				continue
			}
			clonedAt, ok := cloneTime(c)
			if !ok || !clonedAt.Before(cutoff) {
				continue
			}
			if err := os.RemoveAll(filepath.Join(userDir, c.Name())); err != nil {
				m.log.Warn().Err(err).Str("dir", c.Name()).Msg("failed to reap clone")
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		m.log.Debug().Int("removed", removed).Msg("reaped stale clones")
	}
	return removed
}

// cloneTime reads the clone timestamp from the -<nanos> suffix, falling back to the mtime
func cloneTime(e os.DirEntry) (time.Time, bool) {
	name := e.Name()
	if i := strings.LastIndexByte(name, '-'); i >= 0 {
		if n, err := strconv.ParseInt(name[i+1:], 10, 64); err == nil {
			return time.Unix(0, n), true
		}
	}
	info, err := e.Info()
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// safeSegment keeps user-supplied names from escaping the clone root
func safeSegment(s string) string {
	s = strings.ReplaceAll(s, string(os.PathSeparator), "_")
	s = strings.ReplaceAll(s, "/", "_")
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
