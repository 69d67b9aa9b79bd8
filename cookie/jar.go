// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package cookie provides the cookie store shared by the requests of a
// robust client.
package cookie

import (
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// ErrNoDomain is returned when a seed cookie has no Domain.
var ErrNoDomain = errors.New("proxyx/cookie: cookie has no domain")

// A Jar is an http.CookieJar that also remembers every cookie it has
// been given so that the currently valid ones can be listed.
//
// Domain and path matching on the request path are delegated to the
// standard library jar with the public suffix list from
// golang.org/x/net/publicsuffix.
type Jar struct {
	jar *cookiejar.Jar
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*http.Cookie
}

var _ http.CookieJar = (*Jar)(nil)

// NewJar returns a Jar seeded with the given cookies. Each seed cookie
// must carry a Domain; it is stored as if set by https://Domain/.
func NewJar(initial ...*http.Cookie) (*Jar, error) {
	j, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	jar := &Jar{
		jar:     j,
		now:     time.Now,
		entries: make(map[string]*http.Cookie),
	}
	for _, c := range initial {
		if c.Domain == "" {
			return nil, ErrNoDomain
		}
		u := &url.URL{Scheme: "https", Host: trimDot(c.Domain), Path: "/"}
		jar.SetCookies(u, []*http.Cookie{c})
	}
	return jar, nil
}

// SetCookies implements http.CookieJar.
func (jar *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	jar.jar.SetCookies(u, cookies)
	jar.mu.Lock()
	defer jar.mu.Unlock()
	for _, c := range cookies {
		cp := *c
		if cp.Domain == "" {
			cp.Domain = u.Hostname()
		}
		if cp.Path == "" {
			cp.Path = "/"
		}
		if cp.MaxAge > 0 && cp.Expires.IsZero() {
			cp.Expires = jar.now().Add(time.Duration(cp.MaxAge) * time.Second)
		}
		k := key(&cp)
		if cp.MaxAge < 0 {
			delete(jar.entries, k)
			continue
		}
		jar.entries[k] = &cp
	}
}

// Cookies implements http.CookieJar.
func (jar *Jar) Cookies(u *url.URL) []*http.Cookie {
	return jar.jar.Cookies(u)
}

// Valid returns a copy of every stored cookie that has not expired,
// ordered by domain, path and name. Session cookies never expire.
func (jar *Jar) Valid() []*http.Cookie {
	now := jar.now()
	jar.mu.Lock()
	defer jar.mu.Unlock()
	valid := make([]*http.Cookie, 0, len(jar.entries))
	for k, c := range jar.entries {
		if !c.Expires.IsZero() && !c.Expires.After(now) {
			delete(jar.entries, k)
			continue
		}
		cp := *c
		valid = append(valid, &cp)
	}
	sort.Slice(valid, func(i, j int) bool {
		return key(valid[i]) < key(valid[j])
	})
	return valid
}

func key(c *http.Cookie) string {
	return trimDot(c.Domain) + ";" + c.Path + ";" + c.Name
}

func trimDot(domain string) string {
	if len(domain) > 0 && domain[0] == '.' {
		return domain[1:]
	}
	return domain
}
