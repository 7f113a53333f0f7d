package ops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/joshua-d-miller/enrollpipe/internal/config"
)

// manifest is the inventory record created for a device. The mutable lists
// start empty; the fleet tooling fills them in later.
type manifest struct {
	Catalogs          []string `json:"catalogs"`
	IncludedManifests []string `json:"included_manifests"`
	ManagedInstalls   []string `json:"managed_installs"`
	ManagedUninstalls []string `json:"managed_uninstalls"`
	ManagedUpdates    []string `json:"managed_updates"`
	OptionalInstalls  []string `json:"optional_installs"`
}

// RegisterInventory creates the device manifest in the inventory web app,
// unless one already exists. Re-invoking after a failure is safe: an existing
// manifest is left untouched.
func (o *Ops) RegisterInventory(ctx context.Context, cfg *config.Config) error {
	p := cfg.Provisioning
	name, err := o.hostNameFor(ctx, cfg)
	if err != nil {
		return err
	}

	url := strings.TrimRight(p.Inventory.Address, "/") + "/api/manifests/hosts/" + name

	exists, err := o.manifestExists(ctx, url, p.Inventory.Authorization)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	m := manifest{
		Catalogs:          p.Inventory.Catalogs,
		IncludedManifests: p.Inventory.IncludedManifests,
		ManagedInstalls:   []string{},
		ManagedUninstalls: []string{},
		ManagedUpdates:    []string{},
		OptionalInstalls:  []string{},
	}
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build manifest request: %w", err)
	}
	req.Header.Set("Authorization", p.Inventory.Authorization)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("create manifest for %s: inventory returned %s", name, resp.Status)
	}
	return nil
}

// manifestExists checks whether the inventory already has a manifest at url.
func (o *Ops) manifestExists(ctx context.Context, url string, auth string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("build manifest lookup: %w", err)
	}
	req.Header.Set("Authorization", auth)

	resp, err := o.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("look up manifest: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("look up manifest: inventory returned %s", resp.Status)
	}
}
