package spacebridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrClientTooOld means the server requires a newer client
var ErrClientTooOld = errors.New("client version is older than the server minimum")

// VersionInfo is the body of GET /version
type VersionInfo struct {
	ServerVersion    string `json:"server_version"`
	MinClientVersion string `json:"min_client_version,omitempty"`
	MaxClientVersion string `json:"max_client_version,omitempty"`
}

// VersionCheck is the outcome of comparing this client against VersionInfo
type VersionCheck struct {
	ClientVersion      string
	ServerVersion      string
	UpgradeRecommended bool
	LatestVersion      string
}

// GetVersion asks the server for its version, identifying this client and
// its org/project through X-Client-* headers
func (c *Client) GetVersion(ctx context.Context, clientVersion string) (*VersionInfo, error) {
	headers := http.Header{}
	headers.Set("X-Client-Version", clientVersion)
	if c.org != "" {
		headers.Set("X-Client-Organization", c.org)
	}
	if c.project != "" {
		headers.Set("X-Client-Project", c.project)
	}

	var info VersionInfo
	if err := c.do(ctx, http.MethodGet, "version", nil, headers, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CheckVersion compares clientVersion with the server's bounds. Below the
// minimum returns ErrClientTooOld; below the maximum sets UpgradeRecommended.
// Unparseable versions are logged and skipped.
func CheckVersion(info *VersionInfo, clientVersion string) (VersionCheck, error) {
	check := VersionCheck{ClientVersion: clientVersion}
	if info == nil || info.ServerVersion == "" {
		log.Printf("[SPACEBRIDGE] Could not retrieve server version")
		return check, nil
	}
	check.ServerVersion = info.ServerVersion

	client := canonicalVersion(clientVersion)
	if client == "" {
		log.Printf("[SPACEBRIDGE] Client version %q is not semver, assuming v0.0.0", clientVersion)
		client = "v0.0.0"
	}

	if minVersion := canonicalVersion(info.MinClientVersion); minVersion != "" {
		if semver.Compare(client, minVersion) < 0 {
			return check, fmt.Errorf("%w: client %s, minimum %s; please upgrade",
				ErrClientTooOld, clientVersion, info.MinClientVersion)
		}
	} else if info.MinClientVersion != "" {
		log.Printf("[SPACEBRIDGE] Ignoring unparseable min_client_version %q", info.MinClientVersion)
	}

	if maxVersion := canonicalVersion(info.MaxClientVersion); maxVersion != "" {
		if semver.Compare(client, maxVersion) < 0 {
			check.UpgradeRecommended = true
			check.LatestVersion = info.MaxClientVersion
		}
	} else if info.MaxClientVersion != "" {
		log.Printf("[SPACEBRIDGE] Ignoring unparseable max_client_version %q", info.MaxClientVersion)
	}

	return check, nil
}

// canonicalVersion accepts "1.2.3" or "v1.2.3" and returns "" if invalid
func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return semver.Canonical(v)
}
