package config

import (
	"fmt"
	"net/url"
	"time"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError
	p := cfg.Provisioning

	if p.HostnamePrefix == "" {
		errs = append(errs, ValidationError{Field: "provisioning.hostname_prefix", Message: "is required"})
	}
	if p.TimeServer == "" {
		errs = append(errs, ValidationError{Field: "provisioning.time_server", Message: "is required"})
	}
	if len(p.Admins) == 0 {
		errs = append(errs, ValidationError{Field: "provisioning.admins", Message: "at least one admin account is required"})
	}

	if p.StageTimeout != "" {
		if _, err := time.ParseDuration(p.StageTimeout); err != nil {
			errs = append(errs, ValidationError{
				Field:   "provisioning.stage_timeout",
				Message: fmt.Sprintf("invalid duration %q", p.StageTimeout),
			})
		}
	}

	seen := make(map[string]bool)
	for i, a := range p.Admins {
		prefix := fmt.Sprintf("provisioning.admins[%d]", i)
		if a.Account == "" {
			errs = append(errs, ValidationError{Field: prefix + ".account", Message: "is required"})
			continue
		}
		if seen[a.Account] {
			errs = append(errs, ValidationError{
				Field:   prefix + ".account",
				Message: fmt.Sprintf("duplicate admin account %q", a.Account),
			})
		}
		seen[a.Account] = true

		if a.DisplayName == "" {
			errs = append(errs, ValidationError{Field: prefix + ".display_name", Message: "is required"})
		}
		// Pictures are optional, but a URL without a destination (or vice versa)
		// leaves the personalize stage with nowhere to put the avatar.
		if a.PictureURL != "" && a.PicturePath == "" {
			errs = append(errs, ValidationError{Field: prefix + ".picture_path", Message: "required when picture_url is set"})
		}
		if a.PicturePath != "" && a.PictureURL == "" {
			errs = append(errs, ValidationError{Field: prefix + ".picture_url", Message: "required when picture_path is set"})
		}
		if a.PictureURL != "" {
			validateURL(a.PictureURL, prefix+".picture_url", &errs)
		}
	}

	if p.Inventory.Address == "" {
		errs = append(errs, ValidationError{Field: "provisioning.inventory.address", Message: "is required"})
	} else {
		validateURL(p.Inventory.Address, "provisioning.inventory.address", &errs)
	}
	if p.Agent.ReleasesURL != "" {
		validateURL(p.Agent.ReleasesURL, "provisioning.agent.releases_url", &errs)
	}
	if p.Directory.PolicyEvent == "" {
		errs = append(errs, ValidationError{Field: "provisioning.directory.policy_event", Message: "is required"})
	}

	return errs
}

// validateURL appends an error unless raw parses as an absolute http(s) URL.
func validateURL(raw string, field string, errs *[]ValidationError) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		*errs = append(*errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("invalid URL %q", raw),
		})
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		*errs = append(*errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("unsupported scheme %q", u.Scheme),
		})
	}
}
