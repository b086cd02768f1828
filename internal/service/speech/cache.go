package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const audioCachePrefix = "tts:audio:"

// AudioCache stores synthesized audio by key.
type AudioCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, audio []byte, ttl time.Duration) error
}

// RedisAudioCache keeps audio blobs in redis.
type RedisAudioCache struct {
	client *redis.Client
}

// NewRedisAudioCache wraps an existing client.
func NewRedisAudioCache(client *redis.Client) *RedisAudioCache {
	return &RedisAudioCache{client: client}
}

// Get returns ok=false on a cache miss.
func (c *RedisAudioCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores audio with ttl.
func (c *RedisAudioCache) Set(ctx context.Context, key string, audio []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, audio, ttl).Err()
}

// CachedSynthesizer serves repeated (voice, text) pairs from a cache. Cache errors
// are logged and fall through to the wrapped synthesizer.
type CachedSynthesizer struct {
	next  Synthesizer
	cache AudioCache
	ttl   time.Duration
}

// NewCachedSynthesizer wraps next with cache.
func NewCachedSynthesizer(next Synthesizer, cache AudioCache, ttl time.Duration) *CachedSynthesizer {
	return &CachedSynthesizer{next: next, cache: cache, ttl: ttl}
}

// Synthesize implements Synthesizer.
func (c *CachedSynthesizer) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	key := AudioCacheKey(voice, text)

	if audio, ok, err := c.cache.Get(ctx, key); err != nil {
		log.WithError(err).Warn("audio cache read failed")
	} else if ok {
		return audio, nil
	}

	audio, err := c.next.Synthesize(ctx, text, voice)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, audio, c.ttl); err != nil {
		log.WithError(err).Warn("audio cache write failed")
	}
	return audio, nil
}

// AudioCacheKey derives the cache key for a voice and text.
func AudioCacheKey(voice, text string) string {
	sum := sha256.Sum256([]byte(voice + "|" + text))
	return audioCachePrefix + hex.EncodeToString(sum[:])
}
