package cache

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"

	"github.com/bookscout/bookscout/internal/model"
)

const (
	// TrendingKey is the sorted set of query titles scored by search count.
	TrendingKey = "trending:titles"

	// maxTrendingMemberLength bounds the stored member size in characters.
	maxTrendingMemberLength = 128
)

// IncrementTrending adds one search of title to the leaderboard.
// Blank titles are ignored.
func (c *Cache) IncrementTrending(ctx context.Context, title string) error {
	member := trendingMember(title)
	if member == "" {
		return nil
	}
	if err := c.client.ZIncrBy(ctx, TrendingKey, 1, member).Err(); err != nil {
		return fmt.Errorf("redis zincrby failed: %w", err)
	}
	return nil
}

// TopTrending returns up to limit titles, most searched first.
func (c *Cache) TopTrending(ctx context.Context, limit int) ([]model.TrendingTitle, error) {
	if limit <= 0 {
		return []model.TrendingTitle{}, nil
	}

	entries, err := c.client.ZRevRangeWithScores(ctx, TrendingKey, 0, int64(limit-1)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redis zrevrange failed: %w", err)
	}

	titles := make([]model.TrendingTitle, 0, len(entries))
	for _, z := range entries {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		titles = append(titles, model.TrendingTitle{Title: member, Count: int64(z.Score)})
	}
	return titles, nil
}

// trendingMember folds case and whitespace so "Dune" and " dune " count together.
func trendingMember(title string) string {
	member := strings.ToLower(strings.Join(strings.Fields(title), " "))
	if utf8.RuneCountInString(member) > maxTrendingMemberLength {
		member = string([]rune(member)[:maxTrendingMemberLength])
	}
	return member
}
