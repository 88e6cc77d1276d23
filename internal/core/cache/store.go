package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"inflammation-planner/internal/infrastructure/config"
	"inflammation-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// Store 結果快取，值為序列化後的位元組
type Store interface {
	// Get 找不到或已過期時回傳 common.ErrCacheMiss
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Set(ctx context.Context, namespace, key string, value []byte) error
	Stats() map[string]interface{}
	Close() error
}

// NewStore 依設定建立快取；停用時回傳 nil
func NewStore(ctx context.Context, cfg *config.Config) (Store, error) {
	if !cfg.Cache.Enabled {
		common.LogInfo("Cache disabled")
		return nil, nil
	}

	switch cfg.Cache.Backend {
	case "redis":
		store, err := NewRedisStore(ctx, cfg.Redis, cfg.Cache.TTL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "", "memory":
		return NewMemoryStore(cfg.Cache), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// hashKey 計算鍵的 SHA-256
func hashKey(namespace, key string) string {
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s:%s", namespace, hex.EncodeToString(hash[:]))
}

func logStoreReady(backend string, fields ...zap.Field) {
	common.LogInfo("快取管理員已初始化", append([]zap.Field{zap.String("backend", backend)}, fields...)...)
}
