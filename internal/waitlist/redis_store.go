package waitlist

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// seqSpace partitions a ZSET score into referral count (high bits) and
// creation order (low bits): score = refs*seqSpace + (seqSpace-1-seq). Higher
// referral counts sort first and, within a count, earlier registrations keep
// the larger remainder, so ZREVRANK yields (score desc, creation asc) order.
// float64 ZSET scores stay exact below 2^53, leaving room for ~4M referrals
// per member at 2^31 registrations per project.
const seqSpace = int64(1) << 31

// joinScript is the whole registration transaction. Redis runs scripts
// serially, which gives the existence check, referral credit, member write and
// code mapping their all-or-nothing guarantee.
var joinScript = redis.NewScript(`
local boardKey = KEYS[1]
local seqKey = KEYS[2]
local memberPrefix = KEYS[3]
local codePrefix = KEYS[4]

local email = ARGV[1]
local refCode = ARGV[2]
local referrerCode = ARGV[3]
local createdAt = ARGV[4]
local seqSpace = tonumber(ARGV[5])

if redis.call('ZSCORE', boardKey, email) then
  return {'EXISTS', redis.call('HGET', memberPrefix .. email, 'ref_code')}
end

if redis.call('EXISTS', codePrefix .. refCode) == 1 then
  return {'CODE_TAKEN'}
end

local referrer = false
if referrerCode ~= '' then
  referrer = redis.call('GET', codePrefix .. referrerCode)
  if referrer then
    redis.call('ZINCRBY', boardKey, seqSpace, referrer)
  end
end

local seq = redis.call('INCR', seqKey)
redis.call('ZADD', boardKey, seqSpace - 1 - seq, email)
redis.call('HSET', memberPrefix .. email, 'ref_code', refCode, 'created_at', createdAt)
if referrer then
  redis.call('HSET', memberPrefix .. email, 'referred_by', referrer)
end
redis.call('SET', codePrefix .. refCode, email)

local rank = redis.call('ZREVRANK', boardKey, email)
local total = redis.call('ZCARD', boardKey)
return {'OK', rank + 1, total}
`)

// RedisStore is the production Store backend. The registration transaction is
// a single Lua script; reads use MULTI/EXEC pipelines for snapshot
// consistency.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore builds a Store backed by the provided Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func boardKey(project string) string     { return "waitlist:board:" + project }
func seqKey(project string) string       { return "waitlist:seq:" + project }
func memberPrefix(project string) string { return "waitlist:member:" + project + ":" }
func codePrefix(project string) string   { return "waitlist:code:" + project + ":" }

// Join executes the registration script.
func (s *RedisStore) Join(ctx context.Context, project string, reg Registration) (JoinResult, error) {
	keys := []string{boardKey(project), seqKey(project), memberPrefix(project), codePrefix(project)}
	args := []interface{}{
		reg.Email,
		reg.RefCode,
		reg.ReferrerCode,
		strconv.FormatInt(reg.CreatedAt.UnixMilli(), 10),
		seqSpace,
	}

	raw, err := joinScript.Run(ctx, s.client, keys, args...).Result()
	if err != nil {
		return JoinResult{}, fmt.Errorf("run join script: %w", err)
	}

	reply, ok := raw.([]interface{})
	if !ok || len(reply) == 0 {
		return JoinResult{}, fmt.Errorf("unexpected join script reply %T", raw)
	}

	switch status, _ := reply[0].(string); status {
	case "OK":
		if len(reply) != 3 {
			return JoinResult{}, fmt.Errorf("malformed OK reply, %d elements", len(reply))
		}
		rank, _ := reply[1].(int64)
		total, _ := reply[2].(int64)
		return JoinResult{RefCode: reg.RefCode, Rank: rank, Total: total}, nil
	case "EXISTS":
		existing := ""
		if len(reply) > 1 {
			existing, _ = reply[1].(string)
		}
		return JoinResult{RefCode: existing}, ErrAlreadyJoined
	case "CODE_TAKEN":
		return JoinResult{}, ErrCodeTaken
	default:
		return JoinResult{}, fmt.Errorf("unexpected join script status %q", status)
	}
}

// Status reads rank, total and member details in one MULTI/EXEC block so the
// reported numbers come from a single snapshot.
func (s *RedisStore) Status(ctx context.Context, project, email string) (Status, error) {
	memberKey := memberPrefix(project) + email

	pipe := s.client.TxPipeline()
	scoreCmd := pipe.ZScore(ctx, boardKey(project), email)
	rankCmd := pipe.ZRevRank(ctx, boardKey(project), email)
	cardCmd := pipe.ZCard(ctx, boardKey(project))
	codeCmd := pipe.HGet(ctx, memberKey, "ref_code")
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Status{}, fmt.Errorf("status pipeline: %w", err)
	}

	if errors.Is(scoreCmd.Err(), redis.Nil) || errors.Is(rankCmd.Err(), redis.Nil) {
		return Status{}, ErrNotFound
	}
	if err := scoreCmd.Err(); err != nil {
		return Status{}, err
	}

	rank := rankCmd.Val() + 1
	total := cardCmd.Val()
	return Status{
		Rank:    rank,
		Total:   total,
		AheadOf: total - rank,
		RefCode: codeCmd.Val(),
		Score:   referralCount(scoreCmd.Val()),
	}, nil
}

// List enumerates all members in rank order, fetching per-member hashes in a
// pipeline.
func (s *RedisStore) List(ctx context.Context, project string) ([]Member, error) {
	ranked, err := s.client.ZRevRangeWithScores(ctx, boardKey(project), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list board: %w", err)
	}
	if len(ranked) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	hashCmds := make([]*redis.MapStringStringCmd, len(ranked))
	for i, z := range ranked {
		email, _ := z.Member.(string)
		hashCmds[i] = pipe.HGetAll(ctx, memberPrefix(project)+email)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("list member hashes: %w", err)
	}

	members := make([]Member, 0, len(ranked))
	for i, z := range ranked {
		email, _ := z.Member.(string)
		fields := hashCmds[i].Val()
		createdAt, _ := strconv.ParseInt(fields["created_at"], 10, 64)
		members = append(members, Member{
			Email:      email,
			RefCode:    fields["ref_code"],
			ReferredBy: fields["referred_by"],
			Score:      referralCount(z.Score),
			CreatedAt:  millisToTime(createdAt),
		})
	}
	return members, nil
}

// referralCount strips the creation-order bits from a composite ZSET score.
func referralCount(score float64) int64 {
	return int64(score) / seqSpace
}
