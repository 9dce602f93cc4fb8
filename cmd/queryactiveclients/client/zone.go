package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/rs/zerolog"
)

var ErrZoneNotFound = errors.New("zone not found")

// ZoneInfo tells which zone endpoint serves a user.
type ZoneInfo struct {
	URL          string
	WebURL       string
	CI           int
	DataBaseType string
	ErrorCode    int
}

// ZoneResolver resolves the zone endpoint of a user.
type ZoneResolver interface {
	ZoneInfo(ctx context.Context, userName string) (*ZoneInfo, error)
}

func decodeZoneInfo(response *etree.Element, userName string) (*ZoneInfo, error) {
	result := child(response, "getZoneInfoResult")
	if result == nil {
		return nil, fmt.Errorf("%w: missing getZoneInfoResult", ErrMalformedResponse)
	}

	info := &ZoneInfo{
		URL:          text(result, "URL"),
		WebURL:       text(result, "WebUrl"),
		DataBaseType: text(result, "DataBaseType"),
	}
	info.CI, _ = strconv.Atoi(text(result, "CI"))
	info.ErrorCode, _ = strconv.Atoi(text(result, "ErrorCode"))

	if info.ErrorCode != 0 || info.URL == "" {
		return nil, fmt.Errorf("%w for user %s (error code %d)", ErrZoneNotFound, userName, info.ErrorCode)
	}
	return info, nil
}

type cachedZone struct {
	info    ZoneInfo
	expires time.Time
}

// ZoneCache caches zone lookups per user. Zones rarely move, so entries are
// kept for a fixed TTL.
type ZoneCache struct {
	resolver ZoneResolver
	ttl      time.Duration
	log      zerolog.Logger
	now      func() time.Time

	mutex   sync.RWMutex
	entries map[string]cachedZone
}

func NewZoneCache(resolver ZoneResolver, ttl time.Duration, log zerolog.Logger) *ZoneCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ZoneCache{
		resolver: resolver,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
		entries:  make(map[string]cachedZone),
	}
}

func (c *ZoneCache) ZoneInfo(ctx context.Context, userName string) (*ZoneInfo, error) {
	key := strings.ToLower(userName)

	c.mutex.RLock()
	cached, exists := c.entries[key]
	c.mutex.RUnlock()

	if exists && c.now().Before(cached.expires) {
		c.log.Debug().Str("user", userName).Str("url", cached.info.URL).Msg("Zone served from cache")
		info := cached.info
		return &info, nil
	}

	info, err := c.resolver.ZoneInfo(ctx, userName)
	if err != nil {
		return nil, err
	}

	c.mutex.Lock()
	c.entries[key] = cachedZone{info: *info, expires: c.now().Add(c.ttl)}
	c.mutex.Unlock()

	return info, nil
}

// Invalidate drops the cached zone of a user.
func (c *ZoneCache) Invalidate(userName string) {
	c.mutex.Lock()
	delete(c.entries, strings.ToLower(userName))
	c.mutex.Unlock()
}
