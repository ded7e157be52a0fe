package github

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maniishbhusal/TrustChain/internal/cache"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

// bareRemote creates <dir>/<user>/<repo>.git as an empty bare repository
func bareRemote(t *testing.T, user, repo string) string {
	t.Helper()
	host := t.TempDir()
	path := filepath.Join(host, user, repo+".git")
	require.NoError(t, os.MkdirAll(path, 0o755))
	out, err := exec.Command("git", "init", "--bare", "--quiet", path).CombinedOutput()
	require.NoError(t, err, string(out))
	return host
}

func TestCloneRepository_ClonesAndReuses(t *testing.T) {
	requireGit(t)
	host := bareRemote(t, "octocat", "hello")
	m := NewCloneManager(CloneOptions{Root: t.TempDir(), Host: host, TTL: time.Minute}, cache.NewMemory())
	ctx := context.Background()

	h, ok := m.CloneRepository(ctx, "octocat", "hello")
	require.True(t, ok)
	assert.True(t, h.Exists())

	again, ok := m.CloneRepository(ctx, "octocat", "hello")
	require.True(t, ok)
	assert.Equal(t, h.Path, again.Path, "cached handle is reused while the directory exists")

	require.NoError(t, os.RemoveAll(h.Path))
	fresh, ok := m.CloneRepository(ctx, "octocat", "hello")
	require.True(t, ok)
	assert.NotEqual(t, h.Path, fresh.Path)
	assert.True(t, fresh.Exists())
}

func TestCloneRepository_Failure(t *testing.T) {
	requireGit(t)
	m := NewCloneManager(CloneOptions{Root: t.TempDir(), Host: t.TempDir()}, nil)

	h, ok := m.CloneRepository(context.Background(), "octocat", "missing")
	assert.False(t, ok)
	assert.Nil(t, h)
}

func TestCloneRepository_MissingGit(t *testing.T) {
	m := NewCloneManager(CloneOptions{Root: t.TempDir(), Git: "definitely-not-git"}, nil)
	h, ok := m.CloneRepository(context.Background(), "octocat", "hello")
	assert.False(t, ok)
	assert.Nil(t, h)
}

func TestCloneHandle_Exists(t *testing.T) {
	var nilHandle *CloneHandle
	assert.False(t, nilHandle.Exists())
	assert.False(t, (&CloneHandle{}).Exists())
	assert.True(t, (&CloneHandle{Path: t.TempDir()}).Exists())
	assert.False(t, (&CloneHandle{Path: filepath.Join(t.TempDir(), "gone")}).Exists())
}

func TestReap(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	old := filepath.Join(root, "octocat", "hello-"+strconv.FormatInt(now.Add(-2*time.Hour).UnixNano(), 10))
	recent := filepath.Join(root, "octocat", "hello-"+strconv.FormatInt(now.Add(-time.Minute).UnixNano(), 10))
	require.NoError(t, os.MkdirAll(old, 0o755))
	require.NoError(t, os.MkdirAll(recent, 0o755))

	m := NewCloneManager(CloneOptions{Root: root, TTL: 30 * time.Minute}, nil)

	assert.Equal(t, 1, m.Reap(0))
	assert.NoDirExists(t, old)
	assert.DirExists(t, recent)
}

func TestSafeSegment(t *testing.T) {
	assert.Equal(t, "_", safeSegment(".."))
	assert.Equal(t, "a_b", safeSegment("a/b"))
	assert.Equal(t, "octocat", safeSegment("octocat"))
}
