// Package updater talks to the GitHub Releases API to report when a
// newer workbench build is available, and can swap the running binary
// for the latest release in place.
//
// Design decisions:
//   - Zero external dependencies (only net/http + encoding/json)
//   - Atomic replace: download to temp file, then rename over current binary
//   - Non-blocking: CheckVersion runs in a goroutine during "serve"
//   - No auto-restart: user must restart the MCP server after update
package updater

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	repoPath     = "ccplugins/workbench"
	apiTimeout   = 10 * time.Second
	latestAPIURL = "https://api.github.com/repos/" + repoPath + "/releases/latest"
)

// For testing: allow overriding the API endpoint and HTTP client.
var (
	latestEndpoint = latestAPIURL
	httpClient     = &http.Client{Timeout: apiTimeout}
)

// Release mirrors the fields we need from a GitHub release payload.
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
	Assets  []struct {
		Name        string `json:"name"`
		DownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// CheckResult describes the outcome of a version check.
type CheckResult struct {
	Current    string
	Latest     string
	Outdated   bool
	ReleaseURL string
}

// fetchLatest queries the GitHub API for the newest release.
func fetchLatest(version string) (*Release, error) {
	req, err := http.NewRequest(http.MethodGet, latestEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "workbench/"+version)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned %d", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, err
	}
	return &release, nil
}

// CheckVersion compares the running version against the latest GitHub
// release. It is best-effort: any network or API failure yields a
// result with Outdated=false rather than an error, so callers can run
// it in the background without handling failures.
func CheckVersion(version string) *CheckResult {
	result := &CheckResult{Current: strings.TrimPrefix(version, "v")}

	release, err := fetchLatest(version)
	if err != nil {
		return result
	}

	result.Latest = strings.TrimPrefix(release.TagName, "v")
	result.ReleaseURL = release.HTMLURL
	result.Outdated = versionLess(result.Current, result.Latest)
	return result
}

// SelfUpdate downloads the release archive for this OS/arch and
// replaces the running executable atomically.
func SelfUpdate(version string) error {
	release, err := fetchLatest(version)
	if err != nil {
		return fmt.Errorf("checking latest release: %w", err)
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	if !versionLess(strings.TrimPrefix(version, "v"), latest) {
		return fmt.Errorf("already at latest version (%s)", version)
	}

	wantAsset := assetName(latest)
	var downloadURL string
	for _, asset := range release.Assets {
		if asset.Name == wantAsset {
			downloadURL = asset.DownloadURL
			break
		}
	}
	if downloadURL == "" {
		return fmt.Errorf("no release asset for %s/%s (expected %s)", runtime.GOOS, runtime.GOARCH, wantAsset)
	}

	resp, err := httpClient.Get(downloadURL)
	if err != nil {
		return fmt.Errorf("downloading release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned %d", resp.StatusCode)
	}

	binary, err := binaryFromArchive(resp.Body, wantAsset)
	if err != nil {
		return fmt.Errorf("extracting binary: %w", err)
	}

	return replaceExecutable(binary)
}

// replaceExecutable writes the new binary next to the current one and
// renames it into place. Windows cannot rename over a running binary,
// so the old one is moved aside first.
func replaceExecutable(binary []byte) error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("finding current executable: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return fmt.Errorf("resolving symlinks: %w", err)
	}

	staging := execPath + ".new"
	if err := os.WriteFile(staging, binary, 0o755); err != nil {
		return fmt.Errorf("writing new binary: %w", err)
	}

	if runtime.GOOS == "windows" {
		backup := execPath + ".old"
		_ = os.Remove(backup)
		if err := os.Rename(execPath, backup); err != nil {
			_ = os.Remove(staging)
			return fmt.Errorf("backing up current binary: %w", err)
		}
	}

	if err := os.Rename(staging, execPath); err != nil {
		_ = os.Remove(staging)
		return fmt.Errorf("replacing binary: %w", err)
	}
	return nil
}

// assetName builds the archive filename published for this OS and
// architecture, matching GoReleaser's name_template.
func assetName(version string) string {
	ext := "tar.gz"
	if runtime.GOOS == "windows" {
		ext = "zip"
	}
	return fmt.Sprintf("workbench_%s_%s_%s.%s", version, runtime.GOOS, runtime.GOARCH, ext)
}

// binaryFromArchive extracts the workbench binary from a release archive.
// Only .tar.gz is supported; Windows users download the .zip manually.
func binaryFromArchive(r io.Reader, name string) ([]byte, error) {
	if strings.HasSuffix(name, ".zip") {
		return nil, fmt.Errorf("automatic zip extraction is not supported — download manually from GitHub releases")
	}

	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening gzip: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar: %w", err)
		}
		base := filepath.Base(header.Name)
		if base == "workbench" || base == "workbench.exe" {
			return io.ReadAll(tr)
		}
	}
	return nil, fmt.Errorf("workbench binary not found in archive")
}

// versionLess reports whether a is an older semver than b. Dev builds
// and empty strings never count as outdated.
func versionLess(a, b string) bool {
	if a == "" || b == "" || a == "dev" {
		return false
	}

	pa := strings.SplitN(a, ".", 3)
	pb := strings.SplitN(b, ".", 3)
	for i := 0; i < 3; i++ {
		na, nb := part(pa, i), part(pb, i)
		if na != nb {
			return na < nb
		}
	}
	return false
}

// part returns the numeric value of the i-th version component,
// ignoring any non-numeric suffix (e.g. "1-rc2" parses as 1).
func part(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	s := parts[i]
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}
