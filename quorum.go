package redlock

import (
	"context"
	"fmt"
	"sync"

	"github.com/krishna-kudari/redlock/store"
)

// ExecutionStats is the per-attempt tally the quorum attempter
// accumulates: how many stores voted for/against, and the cause for
// each against-vote. MembershipSize and QuorumSize are fixed for the
// coordinator's lifetime.
//
// Reading VotesFor/VotesAgainst is only safe once the attempt's done
// channel (returned alongside the decided vote) has closed — until
// then the attempter goroutine may still be mutating them.
type ExecutionStats struct {
	MembershipSize int
	QuorumSize     int
	VotesFor       map[string]struct{}
	VotesAgainst   map[string]error
}

type namedClient struct {
	name   string
	client store.Client
}

// quorumAttempter fans one scripted operation out to every store in
// parallel and resolves as soon as a quorum of for- or against-votes
// has arrived. onVoteAgainst, if non-nil, is invoked for every
// against-vote — the non-fatal error channel's fan-out point.
type quorumAttempter struct {
	clients       []namedClient
	onVoteAgainst func(err error)
}

// attempt runs one fan-out round. It blocks until a quorum decides,
// then returns the decided vote, the (still-filling) stats for the
// round, and a channel that closes once every store has replied.
func (q *quorumAttempter) attempt(ctx context.Context, s *script, keys []string, args ...interface{}) (vote, *ExecutionStats, <-chan struct{}) {
	n := len(q.clients)
	quorumSize := n/2 + 1

	stats := &ExecutionStats{
		MembershipSize: n,
		QuorumSize:     quorumSize,
		VotesFor:       make(map[string]struct{}, n),
		VotesAgainst:   make(map[string]error, n),
	}

	results := make(chan clientExecutionResult, n)
	for _, c := range q.clients {
		c := c
		go func() {
			defer func() {
				if r := recover(); r != nil {
					results <- clientExecutionResult{vote: voteAgainst, store: c.name, err: fmt.Errorf("redlock: store invocation panicked: %v", r)}
				}
			}()
			results <- invoke(ctx, c.client, c.name, s, keys, args...)
		}()
	}

	decided := make(chan vote, 1)
	done := make(chan struct{})

	go func() {
		var forCount, againstCount int
		var once sync.Once
		for i := 0; i < n; i++ {
			r := <-results
			switch r.vote {
			case voteFor:
				stats.VotesFor[r.store] = struct{}{}
				forCount++
			case voteAgainst:
				stats.VotesAgainst[r.store] = r.err
				againstCount++
				if q.onVoteAgainst != nil {
					q.onVoteAgainst(r.err)
				}
			}
			if forCount >= quorumSize {
				once.Do(func() { decided <- voteFor })
			} else if againstCount >= quorumSize {
				once.Do(func() { decided <- voteAgainst })
			}
		}
		// Every store has replied and neither side reached quorumSize
		// (only possible with an even membership split down the
		// middle) — resolve against so the caller's retry/fail path
		// runs instead of blocking on decided forever.
		once.Do(func() { decided <- voteAgainst })
		close(done)
	}()

	v := <-decided
	return v, stats, done
}
