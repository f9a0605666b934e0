package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JuanRG-20221039/paulofraire-media/internal/upload"
	"github.com/JuanRG-20221039/paulofraire-media/internal/validator"
)

// Profile configures one call site's upload ceilings and wire fields.
// Every limit the admin screens used to hardcode inline lives here.
type Profile struct {
	// FileField is the repeated multipart part name, e.g. "images"
	FileField string `yaml:"fileField"`
	// DeleteField carries the JSON tombstone list, e.g. "imagesToDelete"
	DeleteField string `yaml:"deleteField"`

	AllowedMimeTypes []string `yaml:"allowedMimeTypes"`
	MaxCount         int      `yaml:"maxCount"`
	MaxFileMB        int64    `yaml:"maxFileMB"`
	MaxTotalMB       int64    `yaml:"maxTotalMB"`

	// AspectRatio is width/height; zero disables the aspect gate
	AspectRatio     float64 `yaml:"aspectRatio"`
	AspectTolerance float64 `yaml:"aspectTolerance"`

	// TimeoutSeconds bounds one submission; video profiles use minutes
	TimeoutSeconds int `yaml:"timeoutSeconds"`
}

// Catalog is a named set of profiles, one per admin screen family
type Catalog struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// Rules converts the profile into validator ceilings
func (p Profile) Rules() validator.Rules {
	return validator.Rules{
		AllowedMimeTypes: p.AllowedMimeTypes,
		MaxFileBytes:     p.MaxFileMB << 20,
		MaxTotalBytes:    p.MaxTotalMB << 20,
		MaxCount:         p.MaxCount,
		AspectRatio:      p.AspectRatio,
		AspectTolerance:  p.AspectTolerance,
	}
}

// Options converts the profile into upload session options; the token is
// supplied by the caller because credential lifecycle is external
func (p Profile) Options(token string) upload.Options {
	return upload.Options{
		FileField:   p.FileField,
		DeleteField: p.DeleteField,
		Timeout:     time.Duration(p.TimeoutSeconds) * time.Second,
		Token:       token,
	}
}

// validate rejects a profile that could silently disable a ceiling
func (p Profile) validate(name string) error {
	if p.FileField == "" {
		return fmt.Errorf("profile %q: fileField is required", name)
	}
	if len(p.AllowedMimeTypes) == 0 {
		return fmt.Errorf("profile %q: allowedMimeTypes is required", name)
	}
	if p.MaxCount <= 0 {
		return fmt.Errorf("profile %q: maxCount must be positive", name)
	}
	if p.MaxFileMB <= 0 {
		return fmt.Errorf("profile %q: maxFileMB must be positive", name)
	}
	if p.MaxTotalMB <= 0 {
		return fmt.Errorf("profile %q: maxTotalMB must be positive", name)
	}
	if p.AspectRatio < 0 || p.AspectTolerance < 0 {
		return fmt.Errorf("profile %q: aspect values must not be negative", name)
	}
	if p.TimeoutSeconds <= 0 {
		return fmt.Errorf("profile %q: timeoutSeconds must be positive", name)
	}
	return nil
}

// Profile returns the named profile or an error naming what is missing
func (c *Catalog) Profile(name string) (Profile, error) {
	p, ok := c.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown upload profile %q", name)
	}
	return p, nil
}

// LoadCatalog reads and validates a profile catalog from a YAML file
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile catalog: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse profile catalog: %w", err)
	}
	if len(catalog.Profiles) == 0 {
		return nil, fmt.Errorf("profile catalog %s defines no profiles", path)
	}

	for name, p := range catalog.Profiles {
		if err := p.validate(name); err != nil {
			return nil, err
		}
	}

	return &catalog, nil
}

// DefaultCatalog returns the built-in profiles matching the site's admin
// screens. A YAML catalog overrides these wholesale when provided.
func DefaultCatalog() *Catalog {
	return &Catalog{Profiles: map[string]Profile{
		"news": {
			FileField:        "images",
			DeleteField:      "imagesToDelete",
			AllowedMimeTypes: []string{"image/jpeg", "image/png", "image/webp"},
			MaxCount:         10,
			MaxFileMB:        20,
			MaxTotalMB:       200,
			AspectRatio:      1.5,
			AspectTolerance:  0.01,
			TimeoutSeconds:   120,
		},
		"scholarship": {
			FileField:        "files",
			DeleteField:      "filesToDelete",
			AllowedMimeTypes: []string{"image/jpeg", "image/png", "application/pdf"},
			MaxCount:         5,
			MaxFileMB:        20,
			MaxTotalMB:       100,
			TimeoutSeconds:   60,
		},
		"staff-photo": {
			FileField:        "photo",
			DeleteField:      "photoToDelete",
			AllowedMimeTypes: []string{"image/jpeg", "image/png"},
			MaxCount:         1,
			MaxFileMB:        20,
			MaxTotalMB:       20,
			AspectRatio:      1.0,
			AspectTolerance:  0.02,
			TimeoutSeconds:   30,
		},
		"badge-icon": {
			FileField:        "icon",
			DeleteField:      "iconToDelete",
			AllowedMimeTypes: []string{"image/png", "image/webp"},
			MaxCount:         1,
			MaxFileMB:        3,
			MaxTotalMB:       3,
			AspectRatio:      1.0,
			AspectTolerance:  0.02,
			TimeoutSeconds:   15,
		},
		"video": {
			FileField:        "video",
			DeleteField:      "videoToDelete",
			AllowedMimeTypes: []string{"video/mp4", "video/webm"},
			MaxCount:         1,
			MaxFileMB:        30,
			MaxTotalMB:       30,
			TimeoutSeconds:   300,
		},
	}}
}
