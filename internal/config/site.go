package config

// SiteConfig holds per-host request settings. This lets users decorate
// requests to specific hosts (e.g. a cookie wall or an API that wants an
// extra header) without changing global behavior. It is request
// decoration only; there is no login flow.
type SiteConfig struct {
	// Cookie is an HTTP cookie header value to send to this host.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this host.
	Headers map[string]string `yaml:"headers,omitempty"`

	// SameDomainOnly overrides the global same-domain filter for this
	// host when set.
	SameDomainOnly *bool `yaml:"sameDomainOnly,omitempty"`

	// MaxBytes overrides the global body cap for this host when positive.
	MaxBytes int64 `yaml:"maxBytes,omitempty"`
}

// File represents the structure of the .knowledgemesh configuration file.
type File struct {
	// Sites maps hosts (e.g. "en.wikipedia.org") to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains settings applied to every host unless overridden
	// in the host-specific entry.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a host, merging the
// host-specific entry over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	siteConfig, ok := cf.Sites[host]
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if len(siteConfig.Headers) > 0 {
		merged := make(map[string]string, len(result.Headers)+len(siteConfig.Headers))
		for k, v := range result.Headers {
			merged[k] = v
		}
		for k, v := range siteConfig.Headers {
			merged[k] = v
		}
		result.Headers = merged
	}
	if siteConfig.SameDomainOnly != nil {
		result.SameDomainOnly = siteConfig.SameDomainOnly
	}
	if siteConfig.MaxBytes > 0 {
		result.MaxBytes = siteConfig.MaxBytes
	}

	return result
}
