package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/joshua-d-miller/enrollpipe/internal/config"
)

// release is the slice of a GitHub release we care about.
type release struct {
	TagName string `json:"tag_name"`
	Assets  []struct {
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// InstallManagementAgent downloads the latest agent release, installs the
// package, and flips the agent into bootstrap mode so it starts building the
// machine on its own.
func (o *Ops) InstallManagementAgent(ctx context.Context, cfg *config.Config) error {
	a := cfg.Provisioning.Agent

	url, err := o.latestAssetURL(ctx, a.ReleasesURL)
	if err != nil {
		return err
	}
	if err := o.download(ctx, url, a.PackagePath); err != nil {
		return fmt.Errorf("download agent package: %w", err)
	}

	if _, err := o.cmd.Run(ctx, "/usr/sbin/installer", "-pkg", a.PackagePath, "-target", "/"); err != nil {
		return fmt.Errorf("install agent package: %w", err)
	}
	if _, err := o.cmd.Run(ctx, a.Bootstrap[0], a.Bootstrap[1:]...); err != nil {
		return fmt.Errorf("set bootstrap mode: %w", err)
	}
	return nil
}

// latestAssetURL resolves the download URL of the first asset on the latest release.
func (o *Ops) latestAssetURL(ctx context.Context, releasesURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releasesURL, nil)
	if err != nil {
		return "", fmt.Errorf("build release request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch latest release: %s", resp.Status)
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return "", fmt.Errorf("decode release JSON: %w", err)
	}
	if len(rel.Assets) == 0 {
		return "", fmt.Errorf("release %s has no assets", rel.TagName)
	}
	return rel.Assets[0].BrowserDownloadURL, nil
}
