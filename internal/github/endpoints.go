package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// DefaultCommitLimit is the number of recent commits fetched per repository
const DefaultCommitLimit = 10

// ListRepositories fetches the user's public repositories
func (c *Client) ListRepositories(ctx context.Context, user string) ([]Repo, error) {
	path := fmt.Sprintf("/users/%s/repos?per_page=100", url.PathEscape(user))
	b, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var out []Repo
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

// Languages fetches the language byte breakdown for a repo
func (c *Client) Languages(ctx context.Context, user, repo string) (map[string]int64, error) {
	path := fmt.Sprintf("/repos/%s/%s/languages", url.PathEscape(user), url.PathEscape(repo))
	b, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	out := map[string]int64{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

// Commits fetches up to limit recent commits, newest first
func (c *Client) Commits(ctx context.Context, user, repo string, limit int) ([]Commit, error) {
	if limit <= 0 {
		limit = DefaultCommitLimit
	}
	path := fmt.Sprintf("/repos/%s/%s/commits?per_page=%d", url.PathEscape(user), url.PathEscape(repo), limit)
	b, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var docs []commitDoc
	if err := json.Unmarshal(b, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	out := make([]Commit, 0, len(docs))
	for _, d := range docs {
		out = append(out, Commit{
			SHA:     d.SHA,
			Message: d.Commit.Message,
			Author:  d.Commit.Author.Name,
			Date:    d.Commit.Author.Date,
		})
	}
	return out, nil
}

// Readme fetches and decodes the repository README. A README that is
// absent from the payload or not valid base64 yields "".
func (c *Client) Readme(ctx context.Context, user, repo string) (string, error) {
	path := fmt.Sprintf("/repos/%s/%s/readme", url.PathEscape(user), url.PathEscape(repo))
	b, err := c.get(ctx, path, nil)
	if err != nil {
		return "", err
	}
	var out struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	if out.Content == "" {
		return "", nil
	}
	// GitHub wraps base64 payloads at 60 columns
	raw := strings.NewReplacer("\n", "", "\r", "").Replace(out.Content)
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("github readme not decodable")
		return "", nil
	}
	return string(decoded), nil
}

// Topics fetches the repository topic names
func (c *Client) Topics(ctx context.Context, user, repo string) ([]string, error) {
	path := fmt.Sprintf("/repos/%s/%s/topics", url.PathEscape(user), url.PathEscape(repo))
	b, err := c.get(ctx, path, map[string]string{"Accept": acceptTopics})
	if err != nil {
		return nil, err
	}
	var out struct {
		Names []string `json:"names"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if out.Names == nil {
		out.Names = []string{}
	}
	return out.Names, nil
}
