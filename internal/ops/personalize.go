package ops

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/joshua-d-miller/enrollpipe/internal/config"
)

// PersonalizeAdminAccounts sets display names and avatars for the admin
// accounts and marks them hidden from the login window.
func (o *Ops) PersonalizeAdminAccounts(ctx context.Context, cfg *config.Config) error {
	for _, admin := range cfg.Provisioning.Admins {
		if err := o.personalize(ctx, admin); err != nil {
			return fmt.Errorf("account %s: %w", admin.Account, err)
		}
	}
	return nil
}

func (o *Ops) personalize(ctx context.Context, admin config.Admin) error {
	user := "/Users/" + admin.Account

	if _, err := o.cmd.Run(ctx, "/usr/bin/dscl", ".", "-create", user, "RealName", admin.DisplayName); err != nil {
		return fmt.Errorf("set display name: %w", err)
	}
	if _, err := o.cmd.Run(ctx, "/usr/bin/dscl", ".", "-create", user, "IsHidden", "1"); err != nil {
		return fmt.Errorf("hide account: %w", err)
	}

	if admin.PictureURL == "" {
		return nil
	}
	if err := o.download(ctx, admin.PictureURL, admin.PicturePath); err != nil {
		return fmt.Errorf("download avatar: %w", err)
	}
	if _, err := o.cmd.Run(ctx, "/usr/bin/dscl", ".", "-create", user, "Picture", admin.PicturePath); err != nil {
		return fmt.Errorf("set avatar: %w", err)
	}
	return nil
}

// download fetches url to a local path.
func (o *Ops) download(ctx context.Context, url string, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: %s", url, resp.Status)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
