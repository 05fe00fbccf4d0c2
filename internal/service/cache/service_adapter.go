package cache

import (
	"context"
	"errors"
	"time"

	pkgcache "FeatCast/pkg/cache"
)

// ServiceCache adapts a pkg/cache Service (redis, memory, or layered) to the
// BytesCache API used by the HTTP handlers.
type ServiceCache struct {
	svc    pkgcache.Service
	prefix string
}

func NewServiceCache(svc pkgcache.Service, prefix string) *ServiceCache {
	return &ServiceCache{svc: svc, prefix: prefix}
}

func (s *ServiceCache) GetBytes(key string) ([]byte, bool, error) {
	var raw string
	err := s.svc.Get(context.Background(), pkgcache.GenerateKey(s.prefix, key), &raw)
	if err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(raw), true, nil
}

func (s *ServiceCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	return s.svc.Set(context.Background(), pkgcache.GenerateKey(s.prefix, key), string(value), ttl)
}
