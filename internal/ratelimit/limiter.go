// internal/ratelimit/limiter.go

// Package ratelimit throttles refund checks and cancellations per client.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Scope names a rate-limited operation.
type Scope string

const (
	ScopeEligibility Scope = "eligibility"
	ScopeCancel      Scope = "cancel"
)

type Config struct {
	EligibilityMaxPerHour int // per client IP (default: 120)
	CancelMaxPerHour      int // per client IP (default: 20)

	// Clock for testing (nil uses real time)
	Clock Clock
}

func DefaultConfig() *Config {
	return &Config{
		EligibilityMaxPerHour: 120,
		CancelMaxPerHour:      20,
	}
}

// LimitResult contains the result of a rate limit check.
type LimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	Reason     string // For logging
}

// entry tracks requests in a fixed one-hour window.
type entry struct {
	count   int
	firstAt time.Time
	lastAt  time.Time
}

type Limiter struct {
	config  *Config
	clock   Clock
	mu      sync.Mutex
	entries map[Scope]map[string]*entry

	cleanupCtx    context.Context
	cleanupCancel context.CancelFunc
	cleanupOnce   sync.Once
	cleanupWg     sync.WaitGroup
}

func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		config:        cfg,
		clock:         clock,
		entries:       make(map[Scope]map[string]*entry),
		cleanupCtx:    ctx,
		cleanupCancel: cancel,
	}
}

// Close stops the cleanup goroutine and releases resources.
func (l *Limiter) Close() {
	l.cleanupCancel()
	l.cleanupWg.Wait()
}

func (l *Limiter) limitFor(scope Scope) int {
	switch scope {
	case ScopeEligibility:
		return l.config.EligibilityMaxPerHour
	case ScopeCancel:
		return l.config.CancelMaxPerHour
	default:
		return 0
	}
}

// Allow checks and records one request for key within scope.
// A non-positive limit disables limiting for the scope.
func (l *Limiter) Allow(scope Scope, key string) LimitResult {
	limit := l.limitFor(scope)
	if limit <= 0 {
		return LimitResult{Allowed: true, Remaining: math.MaxInt32}
	}

	l.startCleanup()
	now := l.clock.Now()
	hashed := hashKey(string(scope)+":", key)

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket := l.entries[scope]
	if bucket == nil {
		bucket = make(map[string]*entry)
		l.entries[scope] = bucket
	}

	e := bucket[hashed]
	if e == nil || now.Sub(e.firstAt) >= time.Hour {
		bucket[hashed] = &entry{count: 1, firstAt: now, lastAt: now}
		return LimitResult{Allowed: true, Remaining: limit - 1}
	}
	if e.count >= limit {
		return LimitResult{
			Allowed:    false,
			RetryAfter: time.Hour - now.Sub(e.firstAt),
			Reason:     "hourly_limit",
		}
	}
	e.count++
	e.lastAt = now
	return LimitResult{Allowed: true, Remaining: limit - e.count}
}

func hashKey(prefix, value string) string {
	hash := sha256.Sum256([]byte(strings.TrimSpace(value)))
	return prefix + hex.EncodeToString(hash[:8])
}

func (l *Limiter) startCleanup() {
	l.cleanupOnce.Do(func() {
		l.cleanupWg.Add(1)
		go func() {
			defer l.cleanupWg.Done()
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-l.cleanupCtx.Done():
					return
				case <-ticker.C:
					l.cleanup()
				}
			}
		}()
	})
}

func (l *Limiter) cleanup() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, bucket := range l.entries {
		for k, e := range bucket {
			if now.Sub(e.firstAt) >= time.Hour {
				delete(bucket, k)
			}
		}
	}
}

// Middleware rejects requests over the scope's hourly limit with 429.
func (l *Limiter) Middleware(scope Scope, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := GetClientIP(r, trustProxy)
			result := l.Allow(scope, ip)
			if !result.Allowed {
				seconds := int(math.Ceil(result.RetryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				log.Ctx(r.Context()).Warn().
					Str("event", "rate_limit_exceeded").
					Str("scope", string(scope)).
					Str("ip", ip).
					Str("reason", result.Reason).
					Msg("Rate limit exceeded")
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				http.Error(w, "Too many requests, please try again later", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClientIP extracts the client IP from a request.
// When trustProxy is true, uses the rightmost public IP from X-Forwarded-For.
// When trustProxy is false, X-Forwarded-For is ignored.
func GetClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			for i := len(parts) - 1; i >= 0; i-- {
				ip := strings.TrimSpace(parts[i])
				if ip != "" && !isPrivateIP(ip) {
					return ip
				}
			}
			return strings.TrimSpace(parts[len(parts)-1])
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

var privateNetworks []*net.IPNet

func init() {
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	} {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("invalid private CIDR: " + cidr)
		}
		privateNetworks = append(privateNetworks, network)
	}
}

func isPrivateIP(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	if ipv4 := ip.To4(); ipv4 != nil {
		ip = ipv4
	}
	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
