// Package ratelimit ограничивает частоту запросов для каждого клиента.
package ratelimit

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// KeyLimiter token bucket на каждый ключ (адрес клиента)
type KeyLimiter struct {
	mu  sync.Mutex
	m   map[string]*bucket
	r   rate.Limit
	b   int
	now func() time.Time
}

func New(reqPerSec float64, burst int) *KeyLimiter {
	if burst < 1 {
		burst = 1
	}
	return &KeyLimiter{
		m:   make(map[string]*bucket),
		r:   rate.Limit(reqPerSec),
		b:   burst,
		now: time.Now,
	}
}

func (kl *KeyLimiter) Allow(key string) bool {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	now := kl.now()
	bk, ok := kl.m[key]
	if !ok {
		bk = &bucket{lim: rate.NewLimiter(kl.r, kl.b)}
		kl.m[key] = bk
	}
	bk.lastSeen = now
	return bk.lim.AllowN(now, 1)
}

// Sweep удаляет корзины клиентов, не заходивших дольше idle. Возвращает число удалённых.
func (kl *KeyLimiter) Sweep(idle time.Duration) int {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	cutoff := kl.now().Add(-idle)
	removed := 0
	for key, bk := range kl.m {
		if bk.lastSeen.Before(cutoff) {
			delete(kl.m, key)
			removed++
		}
	}
	return removed
}

// Run чистит простаивающие корзины раз в idle, пока не отменён ctx
func (kl *KeyLimiter) Run(ctx context.Context, idle time.Duration) {
	ticker := time.NewTicker(idle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			kl.Sweep(idle)
		}
	}
}

// Len число отслеживаемых клиентов
func (kl *KeyLimiter) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.m)
}

// Middleware отвечает 429, если клиент исчерпал лимит
func (kl *KeyLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !kl.Allow(clientKey(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{
				"reason":  "RateLimited",
				"message": "Too many requests",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type peerKey struct{}

// PeerAddr запоминает адрес соединения. Ставится до middleware.RealIP:
// тот переписывает RemoteAddr значением из заголовков, которые задаёт клиент.
func PeerAddr(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), peerKey{}, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientKey(r *http.Request) string {
	addr := r.RemoteAddr
	if peer, ok := r.Context().Value(peerKey{}).(string); ok {
		addr = peer
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
