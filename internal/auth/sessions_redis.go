package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mkovacevic/shopfront/pkg"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	sessionKeyPrefix = "shopfront-session||"
	tokensSetKey     = "shopfront-sessions"
)

var _ SessionStore = (*RedisSessionStore)(nil)

// RedisSessionStore keeps sessions in redis, for deployments with more
// than one service instance. Expiry is enforced by redis key TTL; the
// tokens set only exists so ScanAndClean can drop stale set members.
type RedisSessionStore struct {
	redisClient *redis.Client
	ttl         time.Duration

	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
}

func NewRedisSessionStore(ttl time.Duration, redisClient *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{
		ttl:            ttl,
		redisClient:    redisClient,
		RandStringFunc: pkg.GenerateRandomString,
	}
}

func (rs *RedisSessionStore) Create(ctx context.Context, principal Principal) (string, error) {
	token, err := rs.RandStringFunc(sessionTokenLength)
	if err != nil {
		return "", err
	}

	principalJson, err := json.Marshal(principal)
	if err != nil {
		return "", fmt.Errorf("marshal principal: %w", err)
	}

	sessionKey := sessionKeyPrefix + token
	cmdSet := rs.redisClient.Set(ctx, sessionKey, string(principalJson), rs.ttl)
	if err := cmdSet.Err(); err != nil {
		return "", err
	}

	// add token to list of sessions
	cmdSAdd := rs.redisClient.SAdd(ctx, tokensSetKey, token)
	if err := cmdSAdd.Err(); err != nil {
		return "", err
	}

	return token, nil
}

func (rs *RedisSessionStore) Get(ctx context.Context, token string) (*Principal, error) {
	sessionKey := sessionKeyPrefix + token
	cmd := rs.redisClient.Get(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSession
		}
		// fail closed on any uncertainty about session validity
		return nil, err
	}

	var principal Principal
	if err := json.Unmarshal([]byte(cmd.Val()), &principal); err != nil {
		return nil, ErrNoSession
	}

	return &principal, nil
}

func (rs *RedisSessionStore) Destroy(ctx context.Context, token string) error {
	sessionKey := sessionKeyPrefix + token
	if err := rs.redisClient.Del(ctx, sessionKey).Err(); err != nil {
		return err
	}

	// remove token from the list of sessions
	return rs.redisClient.SRem(ctx, tokensSetKey, token).Err()
}

// ScanAndClean will run through all known session tokens and remove the
// set members whose session keys already expired on the redis side
func (rs *RedisSessionStore) ScanAndClean(ctx context.Context) {
	cmd := rs.redisClient.SMembers(ctx, tokensSetKey)
	if err := cmd.Err(); err != nil {
		log.Errorf("!!! session store, scan and clean, get sessions: %s", err)
		return
	}

	sessionTokens := cmd.Val()
	if len(sessionTokens) == 0 {
		return
	}

	var toRemove []string
	for _, token := range sessionTokens {
		sessionKey := sessionKeyPrefix + token
		existsCmd := rs.redisClient.Exists(ctx, sessionKey)
		if err := existsCmd.Err(); err != nil {
			log.Errorf("=> session store, scan and clean token %s: %s", token, err)
			continue
		}
		if existsCmd.Val() == 0 {
			toRemove = append(toRemove, token)
		}
	}

	if len(toRemove) == 0 {
		return
	}

	for _, token := range toRemove {
		if err := rs.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
			log.Errorf("=> session store, scan and clean, remove stale token %s: %s", token, err)
		}
	}
	log.Debugf("session store: scan and clean removed %d stale tokens", len(toRemove))
}
