package ratelimiting

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

// RequestRateLimiter gates HTTP requests by a key derived from the request,
// such as the caller's IP or the authenticated user id.
type RequestRateLimiter interface {
	Consume(r *http.Request) bool
	KeyFor(r *http.Request) string
}

type RefillPerSecond int
type BurstSize int

// Buckets for keys not seen in a while are evicted to bound memory use.
const bucketTTL = 30 * time.Minute

type keyedTokenBuckets struct {
	buckets *ttlcache.Cache[string, *rate.Limiter]
	refill  rate.Limit
	burst   int
	keyFunc func(r *http.Request) string
}

func (k *keyedTokenBuckets) Consume(r *http.Request) bool {
	bucket, _ := k.buckets.GetOrSet(k.KeyFor(r), rate.NewLimiter(k.refill, k.burst))
	return bucket.Value().Allow()
}

func (k *keyedTokenBuckets) KeyFor(r *http.Request) string {
	return k.keyFunc(r)
}

func newKeyedTokenBuckets(refill RefillPerSecond, burst BurstSize, keyFunc func(r *http.Request) string) (*keyedTokenBuckets, func()) {
	buckets := ttlcache.New[string, *rate.Limiter](
		ttlcache.WithTTL[string, *rate.Limiter](bucketTTL),
	)
	go buckets.Start()

	return &keyedTokenBuckets{
		buckets: buckets,
		refill:  rate.Limit(refill),
		burst:   int(burst),
		keyFunc: keyFunc,
	}, buckets.Stop
}

// NewIPRateLimiter returns a limiter keyed on the caller's IP and a stop
// function releasing its bookkeeping.
func NewIPRateLimiter(refill RefillPerSecond, burst BurstSize) (RequestRateLimiter, func()) {
	return newKeyedTokenBuckets(refill, burst, ipKey)
}

// NewUserRateLimiter returns a limiter keyed on the X-User-Id header.
// NOTE: The key is user controlled.
func NewUserRateLimiter(refill RefillPerSecond, burst BurstSize) (RequestRateLimiter, func()) {
	return newKeyedTokenBuckets(refill, burst, userIDKey)
}

func ipKey(r *http.Request) string {
	host := r.RemoteAddr
	if portIndex := strings.IndexByte(host, ':'); portIndex != -1 {
		host = host[:portIndex]
	}
	return fmt.Sprintf("ip: %s", host)
}

func userIDKey(r *http.Request) string {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		userID = "<missing>"
	}
	return fmt.Sprintf("user-id: %.50s", userID)
}
