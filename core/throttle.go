package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ログイン失敗カウンタのキー接頭辞。email と送信元 IP の組で数える。
const loginFailKeyPrefix = "login_fail:"

// LoginThrottle counts failed logins per email+IP in Redis and blocks further
// attempts once the window limit is reached. Counters expire on their own, so
// there is nothing to clean up.
type LoginThrottle struct {
	client *redis.Client
	max    int
	window time.Duration
}

func NewLoginThrottle(client *redis.Client, max int, window time.Duration) *LoginThrottle {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &LoginThrottle{client: client, max: max, window: window}
}

func loginFailKey(email, ip string) string {
	return loginFailKeyPrefix + strings.ToLower(strings.TrimSpace(email)) + ":" + ip
}

// Blocked reports whether this email+IP pair has exhausted its attempts, and
// if so for how long. Redis trouble fails open: a broken throttle must not
// lock everyone out.
func (t *LoginThrottle) Blocked(ctx context.Context, email, ip string) (bool, time.Duration) {
	key := loginFailKey(email, ip)
	count, err := t.client.Get(ctx, key).Int()
	if err != nil {
		if err != redis.Nil {
			log.Printf("login throttle: get %s failed: %v", key, err)
		}
		return false, 0
	}
	if count < t.max {
		return false, 0
	}
	retryAfter, err := t.client.TTL(ctx, key).Result()
	if err != nil || retryAfter < 0 {
		retryAfter = t.window
	}
	return true, retryAfter
}

// RecordFailure bumps the counter; the first failure in a window arms its expiry.
func (t *LoginThrottle) RecordFailure(ctx context.Context, email, ip string) {
	key := loginFailKey(email, ip)
	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("login throttle: incr %s failed: %v", key, err)
		return
	}
	if count == 1 {
		if err := t.client.Expire(ctx, key, t.window).Err(); err != nil {
			log.Printf("login throttle: expire %s failed: %v", key, err)
		}
	}
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, email, ip string) {
	if err := t.client.Del(ctx, loginFailKey(email, ip)).Err(); err != nil {
		log.Printf("login throttle: reset failed: %v", err)
	}
}

// RetryAfterSeconds renders a Retry-After header value, rounding up so a
// client never retries a moment too early.
func RetryAfterSeconds(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("%d", secs)
}
