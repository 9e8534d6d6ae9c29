package services

import (
	"context"
	"time"

	"go_draft_backend/pkg/logging"
	"go_draft_backend/platform/cache"
)

// AuthService 卡密校验。真正的校验在生成后端，这里只做透传 + 结果缓存，
// 避免每个请求都打一次远端。
type AuthService struct {
	writer *WriterClient
	valid  *cache.TypedCache[bool]
	ttl    time.Duration
}

func NewAuthService(writer *WriterClient, cacheService cache.CacheService, ttl time.Duration) *AuthService {
	return &AuthService{
		writer: writer,
		valid:  cache.NewTypedCache[bool](cacheService),
		ttl:    ttl,
	}
}

// Verify 校验卡密。只缓存通过的结果，无效卡密每次都重新问远端，
// 这样新发的卡立刻可用。
func (s *AuthService) Verify(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	cacheKey := "auth:" + key
	if ok, hit, err := s.valid.Get(cacheKey); err == nil && hit && ok {
		return true, nil
	}

	ok, err := s.writer.VerifyLogin(ctx, key)
	if err != nil {
		logging.Logger.Error("fail Verify", "error", err)
		return false, err
	}
	if ok {
		if err := s.valid.Set(cacheKey, true, s.ttl); err != nil {
			logging.Logger.Error("fail Verify cache set", "error", err)
		}
	}
	return ok, nil
}
