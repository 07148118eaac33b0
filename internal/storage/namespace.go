package storage

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNamespaceAmbiguous means no default namespace is configured, so some
// assets would have nowhere to go. It is a startup error.
var ErrNamespaceAmbiguous = errors.New("no default namespace configured")

var namespacePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

// ValidNamespace reports whether ns is a path-safe namespace token.
func ValidNamespace(ns string) bool {
	return namespacePattern.MatchString(ns)
}

// Hints are the namespace sources available to a call, highest priority first.
type Hints struct {
	// Explicit is the namespace requested by the immediate caller.
	Explicit string
	// Document is the namespace recorded on the owning record.
	Document string
	// Origin is the request origin or referrer.
	Origin string
}

// Resolver picks the namespace of an asset. The same resolver and the same
// hints must be used when an asset is written and when it is read back.
type Resolver struct {
	known   []string
	aliases map[string]string
	def     string
}

// NewResolver builds a resolver. known lists the section identifiers looked
// for in the origin, in match order; aliases maps a section to the namespace
// its assets belong to when that differs from the section itself.
func NewResolver(def string, known []string, aliases map[string]string) (*Resolver, error) {
	def = normalize(def)
	if !ValidNamespace(def) {
		return nil, ErrNamespaceAmbiguous
	}
	r := &Resolver{def: def, aliases: make(map[string]string, len(aliases))}
	for _, k := range known {
		if k = normalize(k); k != "" {
			r.known = append(r.known, k)
		}
	}
	for from, to := range aliases {
		if to = normalize(to); ValidNamespace(to) {
			r.aliases[normalize(from)] = to
		}
	}
	return r, nil
}

// Default returns the fallback namespace.
func (r *Resolver) Default() string { return r.def }

// Resolve returns the namespace for h. It never returns an empty string.
func (r *Resolver) Resolve(h Hints) string {
	if ns := normalize(h.Explicit); ValidNamespace(ns) {
		return ns
	}
	if ns := normalize(h.Document); ValidNamespace(ns) {
		return ns
	}
	if ns, ok := r.fromOrigin(h.Origin); ok {
		return ns
	}
	return r.def
}

func (r *Resolver) fromOrigin(origin string) (string, bool) {
	origin = strings.ToLower(origin)
	if origin == "" {
		return "", false
	}
	for _, k := range r.known {
		if !strings.Contains(origin, k) {
			continue
		}
		if ns, ok := r.aliases[k]; ok {
			return ns, true
		}
		if ValidNamespace(k) {
			return k, true
		}
	}
	return "", false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
