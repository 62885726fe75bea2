package policy

import (
	"slices"

	"github.com/kvasov/domshield/common/utils"
	"github.com/kvasov/domshield/domain"
)

// whitelisted reports whether the hostname itself or its registrable domain
// is in the combined built-in + user whitelist.
func (p *Policy) whitelisted(cn string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ensureWhitelistLoaded()

	if p.inWhitelist(cn) {
		return true
	}
	apex := utils.RegistrableDomain(cn)
	return apex != cn && p.inWhitelist(apex)
}

// inWhitelist checks both sets. Caller holds the lock.
func (p *Policy) inWhitelist(name string) bool {
	if _, ok := p.builtin[name]; ok {
		return true
	}
	_, ok := p.user[name]
	return ok
}

// ensureWhitelistLoaded lazily loads the user set from the store. Built-in
// entries that leaked into older persisted state are dropped on the way in.
// Caller holds the lock.
func (p *Policy) ensureWhitelistLoaded() {
	if p.user != nil {
		return
	}
	p.user = make(map[string]struct{})
	domains, err := p.store.LoadWhitelist()
	if err != nil {
		p.logger.Warn(map[string]any{"error": err.Error()}, "whitelist load failed, starting empty")
		return
	}
	for _, d := range domains {
		cn := utils.CanonicalHostname(d)
		if cn == "" {
			continue
		}
		if _, ok := p.builtin[cn]; ok {
			continue
		}
		p.user[cn] = struct{}{}
	}
}

// AddToWhitelist adds a domain to the user whitelist. Built-in entries are
// never written into user storage.
func (p *Policy) AddToWhitelist(name string) error {
	cn := utils.CanonicalHostname(name)
	if cn == "" {
		return nil
	}
	p.mu.Lock()
	p.ensureWhitelistLoaded()
	if _, ok := p.builtin[cn]; ok {
		p.mu.Unlock()
		return nil
	}
	if _, ok := p.user[cn]; ok {
		p.mu.Unlock()
		return nil
	}
	p.user[cn] = struct{}{}
	err := p.persistWhitelistLocked()
	p.mu.Unlock()

	p.cache.Purge()
	p.notifier.publish(domain.ChangeWhitelist)
	return err
}

// RemoveFromWhitelist removes a domain from the user whitelist. Built-in
// entries cannot be removed.
func (p *Policy) RemoveFromWhitelist(name string) error {
	cn := utils.CanonicalHostname(name)
	p.mu.Lock()
	p.ensureWhitelistLoaded()
	if _, ok := p.user[cn]; !ok {
		p.mu.Unlock()
		return nil
	}
	delete(p.user, cn)
	err := p.persistWhitelistLocked()
	p.mu.Unlock()

	p.cache.Purge()
	p.notifier.publish(domain.ChangeWhitelist)
	return err
}

// SetWhitelist replaces the entire user whitelist.
func (p *Policy) SetWhitelist(domains []string) error {
	p.mu.Lock()
	p.user = make(map[string]struct{}, len(domains))
	for _, d := range domains {
		cn := utils.CanonicalHostname(d)
		if cn == "" {
			continue
		}
		if _, ok := p.builtin[cn]; ok {
			continue
		}
		p.user[cn] = struct{}{}
	}
	err := p.persistWhitelistLocked()
	p.mu.Unlock()

	p.cache.Purge()
	p.notifier.publish(domain.ChangeWhitelist)
	return err
}

// UserWhitelist returns the user-added domains, sorted.
func (p *Policy) UserWhitelist() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ensureWhitelistLoaded()
	out := make([]string, 0, len(p.user))
	for d := range p.user {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// persistWhitelistLocked writes the user set to the store. Caller holds the
// lock.
func (p *Policy) persistWhitelistLocked() error {
	out := make([]string, 0, len(p.user))
	for d := range p.user {
		out = append(out, d)
	}
	slices.Sort(out)
	if err := p.store.SaveWhitelist(out); err != nil {
		p.logger.Error(map[string]any{"error": err.Error()}, "whitelist not persisted")
		return err
	}
	return nil
}
