package iocdb

import (
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/coach-gateway/pkg/models"
)

// Store is an in-memory index of known-bad indicators. Lookups are near
// O(1) for domains, exact IPs, and hashes; CIDR ranges and URL patterns
// are scanned linearly. A single Store may be shared across goroutines;
// all index state is guarded by one RWMutex so administrative mutation
// does not race with lookups. Each Store is an independent instance, so
// callers can hold one indicator set per tenant.
type Store struct {
	mu sync.RWMutex

	entries map[string]*models.IndicatorEntry // by id

	domains map[string]*models.IndicatorEntry // lowercase domain -> entry
	ips     map[string]*models.IndicatorEntry // exact dotted-quad -> entry
	hashes  map[string]*models.IndicatorEntry // lowercase digest -> entry
	cidrs   []cidrRange
	urlPats []urlPattern

	lastUpdated time.Time

	dropped func(entry models.IndicatorEntry, reason string)
}

type urlPattern struct {
	re    *regexp.Regexp
	entry *models.IndicatorEntry
}

// Option configures a Store.
type Option func(*Store)

// WithDroppedEntryHandler installs a diagnostic hook invoked whenever an
// entry is silently dropped (invalid CIDR or url_pattern). Without a
// handler, drops stay silent.
func WithDroppedEntryHandler(fn func(entry models.IndicatorEntry, reason string)) Option {
	return func(s *Store) { s.dropped = fn }
}

// NewStore creates an empty indicator store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*models.IndicatorEntry),
		domains: make(map[string]*models.IndicatorEntry),
		ips:     make(map[string]*models.IndicatorEntry),
		hashes:  make(map[string]*models.IndicatorEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddIndicator registers an indicator, replacing any existing entry with
// the same id. Entries whose ip value is invalid CIDR-and-not-an-address,
// or whose url_pattern does not compile, are dropped without error.
func (s *Store) AddIndicator(entry models.IndicatorEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, exists := s.entries[entry.ID]; exists {
		s.unindex(old)
	}

	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now()
	}
	e := &entry

	switch entry.Type {
	case models.IndicatorDomain:
		s.domains[normalizeDomain(entry.Value)] = e
	case models.IndicatorIP:
		if strings.Contains(entry.Value, "/") {
			network, mask, ok := parseCIDR(entry.Value)
			if !ok {
				s.drop(entry, "invalid CIDR notation")
				return
			}
			s.cidrs = append(s.cidrs, cidrRange{network: network, mask: mask, entry: e})
		} else {
			if _, ok := parseIPv4(entry.Value); !ok {
				s.drop(entry, "invalid IPv4 address")
				return
			}
			s.ips[entry.Value] = e
		}
	case models.IndicatorHash:
		s.hashes[strings.ToLower(entry.Value)] = e
	case models.IndicatorURLPattern:
		re, err := regexp.Compile("(?i)" + entry.Value)
		if err != nil {
			s.drop(entry, "invalid url_pattern regex: "+err.Error())
			return
		}
		s.urlPats = append(s.urlPats, urlPattern{re: re, entry: e})
	default:
		s.drop(entry, "unknown indicator type")
		return
	}

	s.entries[entry.ID] = e
	s.lastUpdated = time.Now()
}

// RemoveIndicator deletes an indicator by id. Unknown ids are a no-op.
func (s *Store) RemoveIndicator(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[id]
	if !exists {
		return
	}

	s.unindex(entry)
	delete(s.entries, id)
	s.lastUpdated = time.Now()
}

// unindex removes an entry from its type-specific structure.
// Caller holds the write lock.
func (s *Store) unindex(entry *models.IndicatorEntry) {
	switch entry.Type {
	case models.IndicatorDomain:
		delete(s.domains, normalizeDomain(entry.Value))
	case models.IndicatorIP:
		if strings.Contains(entry.Value, "/") {
			for i, c := range s.cidrs {
				if c.entry.ID == entry.ID {
					s.cidrs = append(s.cidrs[:i], s.cidrs[i+1:]...)
					break
				}
			}
		} else {
			delete(s.ips, entry.Value)
		}
	case models.IndicatorHash:
		delete(s.hashes, strings.ToLower(entry.Value))
	case models.IndicatorURLPattern:
		for i, p := range s.urlPats {
			if p.entry.ID == entry.ID {
				s.urlPats = append(s.urlPats[:i], s.urlPats[i+1:]...)
				break
			}
		}
	}
}

func (s *Store) drop(entry models.IndicatorEntry, reason string) {
	if s.dropped != nil {
		s.dropped(entry, reason)
	}
}

// CheckDomain looks up a domain, walking from most- to least-specific so a
// subdomain of a registered domain matches the registered entry. Lookup is
// case- and trailing-dot-insensitive.
func (s *Store) CheckDomain(domain string) *models.IndicatorMatch {
	normalized := normalizeDomain(domain)
	if normalized == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	candidate := normalized
	for {
		if entry, ok := s.domains[candidate]; ok {
			return newMatch(entry, domain)
		}
		dot := strings.Index(candidate, ".")
		if dot < 0 {
			return nil
		}
		candidate = candidate[dot+1:]
	}
}

// CheckIP looks up an IPv4 address. Exact entries take precedence over
// CIDR ranges; malformed addresses return nil rather than an error.
func (s *Store) CheckIP(ip string) *models.IndicatorMatch {
	trimmed := strings.TrimSpace(ip)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if entry, ok := s.ips[trimmed]; ok {
		return newMatch(entry, ip)
	}

	ipInt, ok := parseIPv4(trimmed)
	if !ok {
		return nil
	}
	for _, c := range s.cidrs {
		if c.contains(ipInt) {
			return newMatch(c.entry, ip)
		}
	}
	return nil
}

// CheckHash looks up a digest case-insensitively. Designed for SHA-256
// hex digests but not format-restricted.
func (s *Store) CheckHash(hash string) *models.IndicatorMatch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if entry, ok := s.hashes[strings.ToLower(strings.TrimSpace(hash))]; ok {
		return newMatch(entry, hash)
	}
	return nil
}

// CheckURL tests a URL against registered url_pattern regexes, then falls
// back to checking its host as an IP or domain. Host-derived matches keep
// the full URL as MatchedInput.
func (s *Store) CheckURL(rawURL string) *models.IndicatorMatch {
	s.mu.RLock()
	for _, p := range s.urlPats {
		if p.re.MatchString(rawURL) {
			entry := p.entry
			s.mu.RUnlock()
			return newMatch(entry, rawURL)
		}
	}
	s.mu.RUnlock()

	host := extractHost(rawURL)
	if host == "" {
		return nil
	}

	var match *models.IndicatorMatch
	if _, ok := parseIPv4(host); ok {
		match = s.CheckIP(host)
	} else {
		match = s.CheckDomain(host)
	}
	if match != nil {
		match.MatchedInput = rawURL
	}
	return match
}

// Stats returns counts by type and category plus the last-modified time.
func (s *Store) Stats() models.IndicatorStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.IndicatorStats{
		TotalIndicators: len(s.entries),
		ByType:          make(map[models.IndicatorType]int),
		ByCategory:      make(map[string]int),
		LastUpdated:     s.lastUpdated,
	}
	for _, entry := range s.entries {
		stats.ByType[entry.Type]++
		stats.ByCategory[entry.Category]++
	}
	return stats
}

func newMatch(entry *models.IndicatorEntry, input string) *models.IndicatorMatch {
	return &models.IndicatorMatch{
		Indicator:    entry.Value,
		Type:         entry.Type,
		Category:     entry.Category,
		Severity:     entry.Severity,
		Description:  entry.Description,
		MatchedInput: input,
	}
}

func normalizeDomain(domain string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
}

var hostFallbackRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://(?:[^/@\s]+@)?([^/:?#\s]+)`)

// extractHost pulls the host component out of a URL, stripping embedded
// userinfo before structured parsing and falling back to a manual regex
// when url.Parse rejects the input.
func extractHost(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)

	// Strip userinfo so "user:pass@evil.com" does not confuse parsing.
	cleaned := trimmed
	if schemeEnd := strings.Index(cleaned, "://"); schemeEnd >= 0 {
		rest := cleaned[schemeEnd+3:]
		if at := strings.Index(rest, "@"); at >= 0 {
			slash := strings.IndexAny(rest, "/?#")
			if slash < 0 || at < slash {
				cleaned = cleaned[:schemeEnd+3] + rest[at+1:]
			}
		}
	}

	if u, err := url.Parse(cleaned); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}

	if m := hostFallbackRe.FindStringSubmatch(trimmed); m != nil {
		host := m[1]
		if at := strings.LastIndex(host, "@"); at >= 0 {
			host = host[at+1:]
		}
		if colon := strings.Index(host, ":"); colon >= 0 {
			host = host[:colon]
		}
		return host
	}
	return ""
}
