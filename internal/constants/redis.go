package constants

// Redis 键前缀
const (
	// RedisKeyRevokedTokenPrefix 已注销 JWT 的 jti 前缀, 值带 TTL 到令牌过期
	RedisKeyRevokedTokenPrefix = "bloghub:revoked:"
)

// Redis Pub/Sub 频道
const (
	// RedisPubSubEvents 领域事件频道
	RedisPubSubEvents = "bloghub:events"
)
