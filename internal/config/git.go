package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"

	"github.com/go-ini/ini"
)

// remoteURLPattern takes the last two path segments of an SSH or HTTPS remote,
// e.g. git@github.com:org/repo.git or https://github.com/org/repo
var remoteURLPattern = regexp.MustCompile(`(?:[:/])([^/]+)/([^/]+?)(?:\.git)?$`)

// GitRemote is the organization and project derived from a repository's origin
type GitRemote struct {
	Org     string
	Project string
	URL     string
}

// ReadGitRemote reads the origin remote from the .git/config under dir.
// A missing file, section, or unparseable URL yields an empty GitRemote.
func ReadGitRemote(dir string) (GitRemote, error) {
	path := filepath.Join(dir, ".git", "config")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return GitRemote{}, nil
		}
		return GitRemote{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return GitRemote{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	section, err := cfg.GetSection(`remote "origin"`)
	if err != nil {
		return GitRemote{}, nil
	}
	url := section.Key("url").String()
	if url == "" {
		return GitRemote{}, nil
	}

	org, project, ok := ParseRemoteURL(url)
	if !ok {
		log.Printf("[CONFIG] Could not parse org/project from remote URL: %s", url)
		return GitRemote{URL: url}, nil
	}
	return GitRemote{Org: org, Project: project, URL: url}, nil
}

// ParseRemoteURL extracts org and project from a remote URL
func ParseRemoteURL(url string) (org, project string, ok bool) {
	m := remoteURLPattern.FindStringSubmatch(url)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
