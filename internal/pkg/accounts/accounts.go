// Package accounts keeps the social accounts each user wants to engage with.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// MaxPerUser caps the number of tracked accounts per user.
const MaxPerUser = 50

var (
	ErrInvalidHandle = errors.New("invalid account handle")
	ErrLimitReached  = fmt.Errorf("account limit of %d reached", MaxPerUser)
	ErrUnavailable   = errors.New("account store not configured")
)

var handlePattern = regexp.MustCompile(`^[a-z0-9._]{1,30}$`)

// Add keeps the membership test, the cap check and the insert in one step.
var addScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 1 then
	return 0
end
if redis.call('SCARD', KEYS[1]) >= tonumber(ARGV[2]) then
	return -1
end
redis.call('SADD', KEYS[1], ARGV[1])
return 1
`)

// Normalize turns "  @Some.User " into "@some.user".
func Normalize(handle string) (string, error) {
	h := strings.ToLower(strings.TrimSpace(handle))
	h = strings.TrimPrefix(h, "@")
	if !handlePattern.MatchString(h) {
		return "", fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}
	return "@" + h, nil
}

func key(userID string) string {
	return "accounts:" + userID
}

type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// List returns the user's handles in lexical order.
func (s *Store) List(ctx context.Context, userID string) ([]string, error) {
	if s.rdb == nil {
		return nil, ErrUnavailable
	}
	handles, err := s.rdb.SMembers(ctx, key(userID)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(handles)
	return handles, nil
}

// Add stores handle for userID and returns its normalized form. Adding a
// handle twice is not an error.
func (s *Store) Add(ctx context.Context, userID, handle string) (string, error) {
	normalized, err := Normalize(handle)
	if err != nil {
		return "", err
	}
	if s.rdb == nil {
		return "", ErrUnavailable
	}

	res, err := addScript.Run(ctx, s.rdb, []string{key(userID)}, normalized, MaxPerUser).Int()
	if err != nil {
		return "", err
	}
	if res < 0 {
		return "", ErrLimitReached
	}
	return normalized, nil
}

// Remove deletes handle and reports whether it was present.
func (s *Store) Remove(ctx context.Context, userID, handle string) (bool, error) {
	normalized, err := Normalize(handle)
	if err != nil {
		return false, err
	}
	if s.rdb == nil {
		return false, ErrUnavailable
	}
	n, err := s.rdb.SRem(ctx, key(userID), normalized).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
