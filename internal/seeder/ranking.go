package seeder

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// retrieveRanks fetches the rank of every worker id. Workers that are not
// ranked yet are skipped.
func retrieveRanks(ctx context.Context, client *HTTPClient, cfg *Config, ids []string) ([]Entry, error) {
	entries := make([]Entry, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			resp, err := client.Get(gctx, "/rank/"+id)
			if err != nil {
				return gctx.Err()
			}
			var e Entry
			if err := decode(resp, &e, http.StatusOK); err == nil {
				entries[i] = e
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return slices.DeleteFunc(entries, func(e Entry) bool { return e.WorkerID == "" }), nil
}

func leaderboard(ctx context.Context, client *HTTPClient, topN int) ([]Entry, error) {
	resp, err := client.Get(ctx, "/leaderboard?limit="+strconv.Itoa(topN))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	var out []Entry
	if err := decode(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// verifyLeaderboard checks the leaderboard is sorted by score and that its
// top score matches the best individually fetched rank.
func verifyLeaderboard(ranks, board []Entry) error {
	if len(board) == 0 {
		return fmt.Errorf("empty leaderboard")
	}
	for i := 1; i < len(board); i++ {
		if board[i].Score > board[i-1].Score {
			return fmt.Errorf("leaderboard not sorted: entry %d scores above entry %d", i, i-1)
		}
		if board[i].Rank < board[i-1].Rank {
			return fmt.Errorf("leaderboard ranks decrease at entry %d", i)
		}
	}
	if len(ranks) == 0 {
		return nil
	}
	best := slices.MaxFunc(ranks, func(a, b Entry) int {
		switch {
		case a.Score < b.Score:
			return -1
		case a.Score > b.Score:
			return 1
		}
		return 0
	})
	if best.Score > board[0].Score {
		return fmt.Errorf("top leaderboard score %.2f is below worker %s at %.2f",
			board[0].Score, best.WorkerID, best.Score)
	}
	return nil
}
