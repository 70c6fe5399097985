package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/vitaliisemenov/gatehouse/internal/confparse"
	"github.com/vitaliisemenov/gatehouse/internal/matcher"
)

// Location sigils double as directive names in the block language.
var locationSigils = []string{"@", "~", "^", "$"}

var serverKeys = []string{
	"listen", "https", "host", "root", "echo", "file", "index",
	"directory", "header", "rewrite", "compress", "method", "auth",
	"try", "error", "proxy", "log", "ip", "limit", "buffer",
	"@", "~", "^", "$",
}

var locationKeys = []string{
	"break", "root", "echo", "file", "index", "directory", "header",
	"rewrite", "compress", "method", "auth", "try", "error", "proxy",
	"log", "ip", "limit",
}

// Load reads and translates the configuration file at path. Any problem
// is fatal to startup and reported with the offending line when known.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return LoadBytes(content, filepath.Dir(abs))
}

// LoadBytes translates configuration source. Relative paths resolve
// against dir, the directory containing the configuration file.
func LoadBytes(content []byte, dir string) (*Config, error) {
	root, err := confparse.Parse(string(content))
	if err != nil {
		return nil, err
	}

	ld := &loader{dir: dir}
	cfg := &Config{}

	type tlsGroup struct {
		listen   string
		contents []TLSContent
	}
	var tlsGroups []*tlsGroup

	for _, d := range root.Directives() {
		switch d.Name() {
		case "server":
			block, ok := d.Block()
			if !ok {
				return nil, lineErr(d, "`server` must open a block")
			}
			listens, site, tlsContent, buffer, err := ld.parseServer(block, d)
			if err != nil {
				return nil, err
			}
			for _, listen := range listens {
				sc := findServer(cfg.Servers, listen)
				if sc == nil {
					sc = &ServerConfig{Listen: listen, Buffer: DefaultBuffer}
					cfg.Servers = append(cfg.Servers, sc)
				}
				sc.Sites = append(sc.Sites, site)
				if buffer > 0 {
					sc.Buffer = buffer
				}
				if tlsContent != nil {
					var group *tlsGroup
					for _, g := range tlsGroups {
						if g.listen == listen {
							group = g
							break
						}
					}
					if group == nil {
						group = &tlsGroup{listen: listen}
						tlsGroups = append(tlsGroups, group)
					}
					group.contents = append(group.contents, *tlsContent)
				}
			}
		case "metrics":
			if cfg.Metrics != "" {
				return nil, lineErr(d, "repeated `metrics` directive")
			}
			s, ok := d.String()
			if !ok {
				return nil, lineErr(d, "`metrics` needs an address value")
			}
			addr, err := toSocketAddr(s)
			if err != nil {
				return nil, lineErr(d, err.Error())
			}
			cfg.Metrics = addr
		default:
			return nil, lineErr(d, fmt.Sprintf("unknown directive %q", d.Name()))
		}
	}

	if len(cfg.Servers) == 0 {
		return nil, fmt.Errorf("no `server` block in configuration")
	}

	for _, g := range tlsGroups {
		tc, err := NewTLSConfig(g.contents)
		if err != nil {
			return nil, err
		}
		findServer(cfg.Servers, g.listen).TLS = tc
	}

	return cfg, nil
}

func findServer(servers []*ServerConfig, listen string) *ServerConfig {
	for _, sc := range servers {
		if sc.Listen == listen {
			return sc
		}
	}
	return nil
}

func lineErr(d *confparse.Directive, msg string) error {
	return fmt.Errorf("[line %d] %s", d.Line(), msg)
}

type loader struct {
	dir string
}

func (ld *loader) absPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(ld.dir, p)
}

// checkBlock rejects unknown and repeated directives. Location sigils
// are the only repeatable names.
func (ld *loader) checkBlock(block *confparse.Block, allowed []string) error {
	seen := map[string]bool{}
	for _, d := range block.Directives() {
		name := d.Name()
		known := false
		for _, k := range allowed {
			if k == name {
				known = true
				break
			}
		}
		if !known {
			return lineErr(d, fmt.Sprintf("unknown directive %q", name))
		}
		repeatable := false
		for _, s := range locationSigils {
			if s == name {
				repeatable = true
				break
			}
		}
		if !repeatable {
			if seen[name] {
				return lineErr(d, fmt.Sprintf("repeated directive %q", name))
			}
			seen[name] = true
		}
	}
	return nil
}

func (ld *loader) parseServer(block *confparse.Block, opening *confparse.Directive) ([]string, *SiteConfig, *TLSContent, int, error) {
	if err := ld.checkBlock(block, serverKeys); err != nil {
		return nil, nil, nil, 0, err
	}

	listenDir := block.Get("listen")
	if listenDir == nil {
		return nil, nil, nil, 0, lineErr(opening, "missing `listen` in server block")
	}
	var listens []string
	for _, item := range listenDir.Values() {
		addr, err := toSocketAddr(item)
		if err != nil {
			return nil, nil, nil, 0, lineErr(listenDir, err.Error())
		}
		found := false
		for _, l := range listens {
			if l == addr {
				found = true
				break
			}
		}
		if !found {
			listens = append(listens, addr)
		}
	}
	if len(listens) == 0 {
		return nil, nil, nil, 0, lineErr(listenDir, "`listen` needs at least one address")
	}

	host, err := ld.parseHost(block)
	if err != nil {
		return nil, nil, nil, 0, err
	}

	opts, err := ld.parseOptions(block, true)
	if err != nil {
		return nil, nil, nil, 0, err
	}

	site := &SiteConfig{Host: host, Options: opts}

	for _, d := range block.GetAllNames(locationSigils...) {
		loc, err := ld.parseLocation(d)
		if err != nil {
			return nil, nil, nil, 0, err
		}
		site.Locations = append(site.Locations, loc)
	}

	tlsContent, err := ld.parseHTTPS(block, site)
	if err != nil {
		return nil, nil, nil, 0, err
	}

	buffer := 0
	if d := block.Get("buffer"); d != nil {
		s, ok := d.String()
		if !ok {
			return nil, nil, nil, 0, lineErr(d, "`buffer` needs a size value")
		}
		buffer, err = parseSize(s)
		if err != nil {
			return nil, nil, nil, 0, lineErr(d, err.Error())
		}
	}

	return listens, site, tlsContent, buffer, nil
}

func (ld *loader) parseHost(block *confparse.Block) (*matcher.HostMatcher, error) {
	d := block.Get("host")
	if d == nil {
		return matcher.NewHost(nil)
	}
	s, ok := d.String()
	if !ok {
		return nil, lineErr(d, "`host` needs one or more patterns")
	}
	m, err := matcher.NewHost(strings.Fields(s))
	if err != nil {
		return nil, lineErr(d, err.Error())
	}
	return m, nil
}

func (ld *loader) parseHTTPS(block *confparse.Block, site *SiteConfig) (*TLSContent, error) {
	d := block.Get("https")
	if d == nil {
		return nil, nil
	}
	https, ok := d.Block()
	if !ok {
		return nil, lineErr(d, "`https` must open a block")
	}
	if err := ld.checkBlock(https, []string{"cert", "key"}); err != nil {
		return nil, err
	}
	cert, err := ld.requireString(https, d, "cert")
	if err != nil {
		return nil, err
	}
	key, err := ld.requireString(https, d, "key")
	if err != nil {
		return nil, err
	}
	if site.IsCatchAll() {
		return nil, lineErr(d, "`https` requires `host` so the certificate can be matched by SNI")
	}
	return &TLSContent{
		CertFile: ld.absPath(cert),
		KeyFile:  ld.absPath(key),
		Hosts:    site.Host,
	}, nil
}

func (ld *loader) requireString(block *confparse.Block, parent *confparse.Directive, name string) (string, error) {
	d := block.Get(name)
	if d == nil {
		return "", lineErr(parent, fmt.Sprintf("missing %q in %q", name, parent.Name()))
	}
	s, ok := d.String()
	if !ok {
		return "", lineErr(d, fmt.Sprintf("%q needs a value", name))
	}
	return s, nil
}

func (ld *loader) parseLocation(d *confparse.Directive) (*Location, error) {
	pattern, block, ok := d.ValueBlock()
	if !ok {
		return nil, lineErr(d, "location needs a pattern and a block: `"+d.Name()+" pattern { ... }`")
	}
	if err := ld.checkBlock(block, locationKeys); err != nil {
		return nil, err
	}

	var m *matcher.LocationMatcher
	var err error
	switch d.Name() {
	case "@":
		m, err = matcher.NewLocationGlob(pattern)
	case "~":
		m, err = matcher.NewLocationRegex(pattern)
	case "^":
		m = matcher.NewLocationPrefix(pattern)
	case "$":
		m = matcher.NewLocationSuffix(pattern)
	}
	if err != nil {
		return nil, lineErr(d, err.Error())
	}

	breakFlag := false
	if b := block.Get("break"); b != nil {
		switch {
		case b.IsOn():
			breakFlag = true
		case b.IsOff():
		case b.Kind() == confparse.KindNone:
			breakFlag = true
		default:
			return nil, lineErr(b, "`break` takes `on` or `off`")
		}
	}

	opts, err := ld.parseOptions(block, false)
	if err != nil {
		return nil, err
	}

	return &Location{Matcher: m, Break: breakFlag, Options: opts}, nil
}

// parseOptions reads the option schema shared by sites and locations.
// siteLevel switches on the defaults only a site receives (index list,
// allowed methods).
func (ld *loader) parseOptions(block *confparse.Block, siteLevel bool) (Options, error) {
	var opts Options
	var err error

	if d := block.Get("root"); d != nil {
		s, ok := d.String()
		if !ok {
			return opts, lineErr(d, "`root` needs a path value")
		}
		p := ld.absPath(s)
		opts.Root = &p
	}

	if opts.Echo, err = ld.parseVarSetting(block, "echo"); err != nil {
		return opts, err
	}
	if opts.File, err = ld.parsePathSetting(block, "file"); err != nil {
		return opts, err
	}
	if opts.Index, err = ld.parseIndex(block, siteLevel); err != nil {
		return opts, err
	}
	if opts.Directory, err = ld.parseDirectory(block); err != nil {
		return opts, err
	}
	if opts.Headers, err = ld.parseHeaders(block, "header"); err != nil {
		return opts, err
	}
	if opts.Rewrite, err = ld.parseRewrite(block); err != nil {
		return opts, err
	}
	if opts.Compress, err = ld.parseCompress(block); err != nil {
		return opts, err
	}
	if opts.Method, err = ld.parseMethod(block, siteLevel); err != nil {
		return opts, err
	}
	if opts.Auth, err = ld.parseAuth(block); err != nil {
		return opts, err
	}
	if opts.Try, err = ld.parseTry(block); err != nil {
		return opts, err
	}
	if opts.Error, err = ld.parseError(block); err != nil {
		return opts, err
	}
	if opts.Proxy, err = ld.parseProxy(block); err != nil {
		return opts, err
	}
	if opts.Log, err = ld.parseLog(block); err != nil {
		return opts, err
	}
	if opts.IP, err = ld.parseIP(block); err != nil {
		return opts, err
	}
	if opts.Limit, err = ld.parseLimit(block); err != nil {
		return opts, err
	}

	return opts, nil
}

func (ld *loader) parseVarSetting(block *confparse.Block, name string) (Setting[Var[string]], error) {
	d := block.Get(name)
	if d == nil {
		return None[Var[string]](), nil
	}
	if d.IsOff() {
		return Off[Var[string]](), nil
	}
	s, ok := d.String()
	if !ok {
		return None[Var[string]](), lineErr(d, fmt.Sprintf("%q needs a value", name))
	}
	return Value(NewVar(s)), nil
}

func (ld *loader) parsePathSetting(block *confparse.Block, name string) (Setting[string], error) {
	d := block.Get(name)
	if d == nil {
		return None[string](), nil
	}
	if d.IsOff() {
		return Off[string](), nil
	}
	s, ok := d.String()
	if !ok {
		return None[string](), lineErr(d, fmt.Sprintf("%q needs a path value", name))
	}
	return Value(ld.absPath(s)), nil
}

func (ld *loader) parseIndex(block *confparse.Block, siteLevel bool) (Setting[[]string], error) {
	d := block.Get("index")
	if d == nil {
		if siteLevel {
			return Value(DefaultIndex), nil
		}
		return None[[]string](), nil
	}
	if d.IsOff() {
		return Off[[]string](), nil
	}
	s, ok := d.String()
	if !ok {
		return None[[]string](), lineErr(d, "`index` needs one or more filenames")
	}
	return Value(strings.Fields(s)), nil
}

func (ld *loader) parseDirectory(block *confparse.Block) (Setting[Directory], error) {
	d := block.Get("directory")
	if d == nil {
		return None[Directory](), nil
	}
	if d.IsOff() {
		return Off[Directory](), nil
	}
	if d.IsOn() {
		return Value(Directory{}), nil
	}
	sub, ok := d.Block()
	if !ok {
		return None[Directory](), lineErr(d, "`directory` takes `on`, `off` or a block")
	}
	if err := ld.checkBlock(sub, []string{"time", "size"}); err != nil {
		return None[Directory](), err
	}

	var dir Directory
	if t := sub.Get("time"); t != nil {
		switch {
		case t.IsOff():
		case t.IsOn():
			layout, err := strftimeLayout(DefaultTimeFormat)
			if err != nil {
				return None[Directory](), lineErr(t, err.Error())
			}
			dir.TimeLayout = layout
		default:
			pattern, ok := t.String()
			if !ok {
				return None[Directory](), lineErr(t, "`time` takes `on`, `off` or a format")
			}
			layout, err := strftimeLayout(pattern)
			if err != nil {
				return None[Directory](), lineErr(t, err.Error())
			}
			dir.TimeLayout = layout
		}
	}
	if s := sub.Get("size"); s != nil {
		v, ok := s.Bool()
		if !ok {
			return None[Directory](), lineErr(s, "`size` takes `on` or `off`")
		}
		dir.Size = v
	}
	return Value(dir), nil
}

var headerNameRegex = regexp.MustCompile(`^[A-Za-z0-9!#$%&'*+.^_|~-]+$`)

func (ld *loader) parseHeaders(block *confparse.Block, name string) (Setting[HeaderMap], error) {
	d := block.Get(name)
	if d == nil {
		return None[HeaderMap](), nil
	}
	if d.IsOff() {
		return Off[HeaderMap](), nil
	}
	sub, ok := d.Block()
	if !ok {
		return None[HeaderMap](), lineErr(d, fmt.Sprintf("%q must open a block of name/value pairs", name))
	}
	m := make(HeaderMap, len(sub.Directives()))
	for _, h := range sub.Directives() {
		if !headerNameRegex.MatchString(h.Name()) {
			return None[HeaderMap](), lineErr(h, fmt.Sprintf("cannot resolve %q to http header name", h.Name()))
		}
		v, ok := h.String()
		if !ok {
			// `name on` is a legal header value even though the parser
			// reads it as a boolean.
			if b, isBool := h.Bool(); isBool {
				if b {
					v = "on"
				} else {
					v = "off"
				}
			} else {
				return None[HeaderMap](), lineErr(h, fmt.Sprintf("header %q needs a value", h.Name()))
			}
		}
		m[textprotoCanonical(h.Name())] = NewVar(v)
	}
	return Value(m), nil
}

func (ld *loader) parseRewrite(block *confparse.Block) (Setting[Rewrite], error) {
	d := block.Get("rewrite")
	if d == nil {
		return None[Rewrite](), nil
	}
	if d.IsOff() {
		return Off[Rewrite](), nil
	}
	s, ok := d.String()
	if !ok {
		return None[Rewrite](), lineErr(d, "`rewrite` needs a target: `rewrite URL [301|302]`")
	}
	fields := strings.Fields(s)
	rw := Rewrite{Location: NewVar(fields[0]), Status: 302}
	if len(fields) > 2 {
		return None[Rewrite](), lineErr(d, "`rewrite` takes a target and an optional status")
	}
	if len(fields) == 2 {
		switch fields[1] {
		case "301":
			rw.Status = 301
		case "302":
			rw.Status = 302
		default:
			return None[Rewrite](), lineErr(d, fmt.Sprintf("wrong rewrite status %q, optional value: `301` `302`", fields[1]))
		}
	}
	return Value(rw), nil
}

func (ld *loader) parseCompress(block *confparse.Block) (Setting[Compress], error) {
	d := block.Get("compress")
	if d == nil {
		return None[Compress](), nil
	}
	if d.IsOff() {
		return Off[Compress](), nil
	}
	if d.IsOn() {
		return Value(Compress{
			Modes:      []Encoding{{Kind: EncodingAuto, Level: DefaultCompressLevel}},
			Extensions: DefaultCompressExtensions,
		}), nil
	}
	sub, ok := d.Block()
	if !ok {
		return None[Compress](), lineErr(d, "`compress` takes `on`, `off` or a block")
	}
	if err := ld.checkBlock(sub, []string{"mode", "level", "extension"}); err != nil {
		return None[Compress](), err
	}

	level := DefaultCompressLevel
	if l := sub.Get("level"); l != nil {
		s, ok := l.String()
		if !ok {
			return None[Compress](), lineErr(l, "`level` needs a number")
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > 9 {
			return None[Compress](), lineErr(l, "compress level should be an integer between 0-9")
		}
		level = n
	}

	modes := []Encoding{{Kind: EncodingAuto, Level: level}}
	if m := sub.Get("mode"); m != nil {
		s, ok := m.String()
		if !ok {
			return None[Compress](), lineErr(m, "`mode` needs one or more names")
		}
		modes = modes[:0]
		for _, item := range strings.Fields(s) {
			kind, err := ParseEncodingKind(item)
			if err != nil {
				return None[Compress](), lineErr(m, err.Error())
			}
			modes = append(modes, Encoding{Kind: kind, Level: level})
		}
	}

	extensions := DefaultCompressExtensions
	if e := sub.Get("extension"); e != nil {
		s, ok := e.String()
		if !ok {
			return None[Compress](), lineErr(e, "`extension` needs one or more extensions")
		}
		extensions = strings.Fields(s)
	}

	return Value(Compress{Modes: modes, Extensions: extensions}), nil
}

func (ld *loader) parseMethod(block *confparse.Block, siteLevel bool) (Setting[[]string], error) {
	d := block.Get("method")
	if d == nil {
		if siteLevel {
			return Value(DefaultMethods), nil
		}
		return None[[]string](), nil
	}
	if d.IsOff() {
		// Forbids every method rather than inheriting.
		return Off[[]string](), nil
	}
	s, ok := d.String()
	if !ok {
		return None[[]string](), lineErr(d, "`method` needs one or more method names")
	}
	var methods []string
	for _, item := range strings.Fields(s) {
		m, err := toMethod(item)
		if err != nil {
			return None[[]string](), lineErr(d, err.Error())
		}
		methods = append(methods, m)
	}
	return Value(methods), nil
}

func (ld *loader) parseAuth(block *confparse.Block) (Setting[Auth], error) {
	d := block.Get("auth")
	if d == nil {
		return None[Auth](), nil
	}
	if d.IsOff() {
		return Off[Auth](), nil
	}
	sub, ok := d.Block()
	if !ok {
		return None[Auth](), lineErr(d, "`auth` must open a block with `user` and `password`")
	}
	if err := ld.checkBlock(sub, []string{"user", "password"}); err != nil {
		return None[Auth](), err
	}
	user, err := ld.requireString(sub, d, "user")
	if err != nil {
		return None[Auth](), err
	}
	password, err := ld.requireString(sub, d, "password")
	if err != nil {
		return None[Auth](), err
	}
	return Value(NewBasicAuth(user, password)), nil
}

func (ld *loader) parseTry(block *confparse.Block) (Setting[[]Var[string]], error) {
	d := block.Get("try")
	if d == nil {
		return None[[]Var[string]](), nil
	}
	if d.IsOff() {
		return Off[[]Var[string]](), nil
	}
	s, ok := d.String()
	if !ok {
		return None[[]Var[string]](), lineErr(d, "`try` needs one or more templates")
	}
	var vars []Var[string]
	for _, item := range strings.Fields(s) {
		vars = append(vars, NewVar(item))
	}
	return Value(vars), nil
}

func (ld *loader) parseError(block *confparse.Block) (Setting[ErrorPages], error) {
	d := block.Get("error")
	if d == nil {
		return None[ErrorPages](), nil
	}
	if d.IsOff() {
		return Off[ErrorPages](), nil
	}
	sub, ok := d.Block()
	if !ok {
		return None[ErrorPages](), lineErr(d, "`error` must open a block of status/path pairs")
	}
	pages := make(ErrorPages, len(sub.Directives()))
	for _, e := range sub.Directives() {
		code, err := toStatusCode(e.Name())
		if err != nil {
			return None[ErrorPages](), lineErr(e, err.Error())
		}
		if e.IsOff() {
			pages[code] = Off[string]()
			continue
		}
		p, ok := e.String()
		if !ok {
			return None[ErrorPages](), lineErr(e, fmt.Sprintf("error %d needs a page path", code))
		}
		pages[code] = Value(ld.absPath(p))
	}
	return Value(pages), nil
}

func (ld *loader) parseProxy(block *confparse.Block) (Setting[Proxy], error) {
	d := block.Get("proxy")
	if d == nil {
		return None[Proxy](), nil
	}
	if d.IsOff() {
		return Off[Proxy](), nil
	}
	sub, ok := d.Block()
	if !ok {
		return None[Proxy](), lineErr(d, "`proxy` must open a block with `url`")
	}
	if err := ld.checkBlock(sub, []string{"url", "method", "header", "timeout"}); err != nil {
		return None[Proxy](), err
	}

	rawURL, err := ld.requireString(sub, d, "url")
	if err != nil {
		return None[Proxy](), err
	}
	urlVar, err := ParseVar(rawURL, func(s string) (string, error) {
		u, err := url.Parse(s)
		if err != nil {
			return "", fmt.Errorf("cannot parse %q to url: %w", s, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", fmt.Errorf("proxy url %q must use http or https", s)
		}
		return s, nil
	})
	if err != nil {
		return None[Proxy](), lineErr(sub.Get("url"), err.Error())
	}

	proxy := Proxy{URL: urlVar, Timeout: DefaultProxyTimeout}

	if m := sub.Get("method"); m != nil {
		s, ok := m.String()
		if !ok {
			return None[Proxy](), lineErr(m, "`method` needs a method name")
		}
		proxy.Method, err = toMethod(s)
		if err != nil {
			return None[Proxy](), lineErr(m, err.Error())
		}
	}

	if t := sub.Get("timeout"); t != nil {
		s, ok := t.String()
		if !ok {
			return None[Proxy](), lineErr(t, "`timeout` needs a duration")
		}
		proxy.Timeout, err = parseDuration(s)
		if err != nil {
			return None[Proxy](), lineErr(t, err.Error())
		}
	}

	proxy.Headers, err = ld.parseHeaders(sub, "header")
	if err != nil {
		return None[Proxy](), err
	}

	return Value(proxy), nil
}

func (ld *loader) parseLog(block *confparse.Block) (Setting[*AccessLog], error) {
	d := block.Get("log")
	if d == nil {
		return None[*AccessLog](), nil
	}
	if d.IsOff() {
		return Off[*AccessLog](), nil
	}

	// `log PATH` is shorthand for a file sink with the default format.
	if s, ok := d.String(); ok {
		logger, err := NewAccessLog(DefaultLogFormat).WithFile(ld.absPath(s))
		if err != nil {
			return None[*AccessLog](), lineErr(d, err.Error())
		}
		return Value(logger), nil
	}

	sub, ok := d.Block()
	if !ok {
		return None[*AccessLog](), lineErr(d, "`log` takes a path or a block")
	}
	if err := ld.checkBlock(sub, []string{"mode", "file", "format"}); err != nil {
		return None[*AccessLog](), err
	}

	format := DefaultLogFormat
	if f := sub.Get("format"); f != nil {
		s, ok := f.String()
		if !ok {
			return None[*AccessLog](), lineErr(f, "`format` needs a value")
		}
		format = s
	}

	mode, err := ld.requireString(sub, d, "mode")
	if err != nil {
		return None[*AccessLog](), err
	}
	switch mode {
	case "stdout":
		return Value(NewAccessLog(format).WithStdout()), nil
	case "file":
		path, err := ld.requireString(sub, d, "file")
		if err != nil {
			return None[*AccessLog](), err
		}
		logger, err := NewAccessLog(format).WithFile(ld.absPath(path))
		if err != nil {
			return None[*AccessLog](), lineErr(sub.Get("file"), err.Error())
		}
		return Value(logger), nil
	default:
		return None[*AccessLog](), lineErr(sub.Get("mode"), fmt.Sprintf("wrong log mode %q, optional value: `stdout` `file`", mode))
	}
}

func (ld *loader) parseIP(block *confparse.Block) (Setting[*matcher.IPMatcher], error) {
	d := block.Get("ip")
	if d == nil {
		return None[*matcher.IPMatcher](), nil
	}
	if d.IsOff() {
		return Off[*matcher.IPMatcher](), nil
	}
	sub, ok := d.Block()
	if !ok {
		return None[*matcher.IPMatcher](), lineErr(d, "`ip` must open a block with `allow` and/or `deny`")
	}
	if err := ld.checkBlock(sub, []string{"allow", "deny"}); err != nil {
		return None[*matcher.IPMatcher](), err
	}

	var allow, deny []string
	if a := sub.Get("allow"); a != nil {
		allow = a.Values()
	}
	if de := sub.Get("deny"); de != nil {
		deny = de.Values()
	}
	m, err := matcher.NewIP(allow, deny)
	if err != nil {
		return None[*matcher.IPMatcher](), lineErr(d, err.Error())
	}
	return Value(m), nil
}

func (ld *loader) parseLimit(block *confparse.Block) (Setting[*Limit], error) {
	d := block.Get("limit")
	if d == nil {
		return None[*Limit](), nil
	}
	if d.IsOff() {
		return Off[*Limit](), nil
	}
	sub, ok := d.Block()
	if !ok {
		return None[*Limit](), lineErr(d, "`limit` must open a block with `rate` and `burst`")
	}
	if err := ld.checkBlock(sub, []string{"rate", "burst"}); err != nil {
		return None[*Limit](), err
	}

	rateStr, err := ld.requireString(sub, d, "rate")
	if err != nil {
		return None[*Limit](), err
	}
	n, err := strconv.ParseFloat(rateStr, 64)
	if err != nil || n <= 0 {
		return None[*Limit](), lineErr(sub.Get("rate"), fmt.Sprintf("cannot parse %q to rate", rateStr))
	}

	burst := int(n)
	if burst < 1 {
		burst = 1
	}
	if b := sub.Get("burst"); b != nil {
		s, ok := b.String()
		if !ok {
			return None[*Limit](), lineErr(b, "`burst` needs a number")
		}
		burst, err = strconv.Atoi(s)
		if err != nil || burst < 1 {
			return None[*Limit](), lineErr(b, fmt.Sprintf("cannot parse %q to burst", s))
		}
	}

	limit, err := NewLimit(n, burst)
	if err != nil {
		return None[*Limit](), lineErr(d, err.Error())
	}
	return Value(limit), nil
}
