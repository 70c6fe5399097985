package config

import (
	"github.com/vitaliisemenov/gatehouse/internal/matcher"
)

// Config is the fully loaded configuration: one ServerConfig per
// listening socket plus the optional metrics listener address. It is
// immutable after load and shared by reference across all connections.
type Config struct {
	Servers []*ServerConfig
	Metrics string // empty disables the metrics listener
}

// ServerConfig groups every site sharing one listening socket. When any
// of them terminates TLS, the listener carries an SNI resolver built
// from the sites' certificates.
type ServerConfig struct {
	Listen string
	TLS    *TLSConfig // nil for plain TCP
	Sites  []*SiteConfig
	Buffer int // streaming chunk size for response bodies
}

// Options is the option schema shared by sites and locations; a
// location carries the same settings plus its matcher and break flag.
type Options struct {
	Root      *string
	Echo      Setting[Var[string]]
	File      Setting[string]
	Index     Setting[[]string]
	Directory Setting[Directory]
	Headers   Setting[HeaderMap]
	Rewrite   Setting[Rewrite]
	Compress  Setting[Compress]
	Method    Setting[[]string]
	Auth      Setting[Auth]
	Try       Setting[[]Var[string]]
	Error     Setting[ErrorPages]
	Proxy     Setting[Proxy]
	Log       Setting[*AccessLog]
	IP        Setting[*matcher.IPMatcher]
	Limit     Setting[*Limit]
}

// SiteConfig is one virtual host under a listener.
type SiteConfig struct {
	Host *matcher.HostMatcher
	Options
	Locations []*Location
}

// Location overlays the site configuration for matching request paths.
type Location struct {
	Matcher *matcher.LocationMatcher
	Break   bool
	Options
}

// HostMatches reports whether hostname selects this site. A site without
// host patterns matches anything.
func (s *SiteConfig) HostMatches(hostname string) bool {
	if s.Host == nil {
		return true
	}
	return s.Host.IsMatch(hostname)
}

// IsCatchAll reports whether the site has no host patterns.
func (s *SiteConfig) IsCatchAll() bool {
	return s.Host == nil || s.Host.IsEmpty()
}

// Merge resolves the effective configuration for a request path: every
// matching location is folded over the site in declaration order, and a
// location with the break flag stops the walk. The result carries no
// locations; dispatch never re-evaluates matching.
func (s *SiteConfig) Merge(path string) *SiteConfig {
	eff := &SiteConfig{Host: s.Host, Options: s.Options}
	for _, loc := range s.Locations {
		if !loc.Matcher.IsMatch(path) {
			continue
		}
		eff.Options.mergeFrom(&loc.Options)
		if loc.Break {
			break
		}
	}
	return eff
}

// mergeFrom applies one matching location onto the effective options.
// None keeps the current value, Off clears it, Value replaces it — with
// map-typed options (headers, error pages) merging by union, the
// location entry winning on key collision.
func (o *Options) mergeFrom(loc *Options) {
	if loc.Root != nil {
		o.Root = loc.Root
	}
	o.Echo.merge(loc.Echo)
	o.File.merge(loc.File)
	o.Index.merge(loc.Index)
	o.Directory.merge(loc.Directory)
	mergeMap(&o.Headers, loc.Headers)
	o.Rewrite.merge(loc.Rewrite)
	o.Compress.merge(loc.Compress)
	o.Method.merge(loc.Method)
	o.Auth.merge(loc.Auth)
	o.Try.merge(loc.Try)
	mergeMap(&o.Error, loc.Error)
	o.Proxy.merge(loc.Proxy)
	o.Log.merge(loc.Log)
	o.IP.merge(loc.IP)
	o.Limit.merge(loc.Limit)
}

// mergeMap folds a map-typed setting: a location value unions into the
// site map instead of replacing it wholesale.
func mergeMap[M ~map[K]V, K comparable, V any](dst *Setting[M], src Setting[M]) {
	if src.IsNone() {
		return
	}
	if src.IsOff() {
		*dst = Off[M]()
		return
	}
	srcMap, _ := src.Get()
	dstMap, ok := dst.Get()
	if !ok {
		*dst = Value(srcMap)
		return
	}
	merged := make(M, len(dstMap)+len(srcMap))
	for k, v := range dstMap {
		merged[k] = v
	}
	for k, v := range srcMap {
		merged[k] = v
	}
	*dst = Value(merged)
}
