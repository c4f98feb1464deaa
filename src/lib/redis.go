package lib

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

// ClaimIntentToken marks an intent token id as redeemed for the remainder of
// its lifetime. Called after the redemption commits; duplicate redemptions
// are already absorbed by the payment-id lookup, so this is best-effort
// bookkeeping and a missing or failing client claims successfully.
func ClaimIntentToken(jti string, ttl time.Duration) bool {
	rd := GetRedisClient()
	if rd == nil || jti == "" {
		return true
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	ok, err := rd.SetNX(context.Background(), "intent:redeemed:"+jti, "1", ttl).Result()
	if err != nil {
		log.Printf("[redis] Error claiming intent token %s: %s\n", jti, err.Error())
		return true
	}
	return ok
}
