package main

import (
	"context"
	"time"

	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/db/solutionstore"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/metrics"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/mining"
	"github.com/pkg/errors"
)

const logHashRateInterval = 10 * time.Second

// contains returns whether nonce lies in r, taking wraparound into account.
func (r *nonceRange) contains(nonce uint32) bool {
	return nonce-r.start <= r.end-r.start
}

// mineLoop searches the nonce range of the provider's work until a solution
// is found, the range is exhausted or ctx is cancelled. Progress is kept in
// store, so that a later run on the same work and the same range start
// resumes where this one stopped.
func mineLoop(ctx context.Context, provider mining.WorkProvider, searchRange *nonceRange,
	store *solutionstore.Store, minerMetrics *metrics.Metrics) (mining.SearchState, error) {
	header, err := provider.GetWork()
	if err != nil {
		return mining.SearchStateSearching, errors.Wrap(err, "error getting work")
	}
	templateID := header.TemplateID()

	solution, found, err := store.Solution(&templateID)
	if err != nil {
		return mining.SearchStateSearching, err
	}
	if found {
		log.Infof("Template %s was already solved with nonce %d (hash %s)",
			templateID, solution.Nonce, solution.Hash)
		return mining.SearchStateFound, nil
	}

	if searchRange == nil {
		searchRange = &nonceRange{start: header.Nonce, end: header.Nonce - 1}
	}
	start := searchRange.start
	progress, found, err := store.Progress(&templateID)
	if err != nil {
		return mining.SearchStateSearching, err
	}
	if found {
		if progress.Start == searchRange.start && searchRange.contains(progress.NextNonce) {
			log.Infof("Resuming template %s from nonce %d", templateID, progress.NextNonce)
			start = progress.NextNonce
		} else {
			log.Infof("Ignoring progress of template %s: a search from nonce %d stopped before nonce %d",
				templateID, progress.Start, progress.NextNonce)
		}
	}

	log.Infof("Searching nonces %d..%d of template %s", start, searchRange.end, templateID)
	search := mining.NewSearch(header, start, searchRange.end)
	stopLogHashRate := logHashRate(search, minerMetrics, logHashRateInterval)
	state := search.Run(ctx)
	stopLogHashRate()

	switch state {
	case mining.SearchStateFound:
		nonce, hash, _ := search.Solution()
		log.Infof("Found nonce %d for template %s with hash %s", nonce, templateID, hash)
		minerMetrics.SolutionFound()
		err = store.PutSolution(&templateID, &solutionstore.Solution{Nonce: nonce, Hash: hash})
	case mining.SearchStateExhausted:
		log.Warnf("Nonces %d..%d of template %s exhausted without a solution",
			start, searchRange.end, templateID)
		minerMetrics.SearchExhausted()
		err = store.DeleteProgress(&templateID)
	case mining.SearchStateCancelled:
		log.Infof("Search of template %s stopped before nonce %d", templateID, search.NextNonce())
		err = store.PutProgress(&templateID, &solutionstore.Progress{
			Start:     searchRange.start,
			NextNonce: search.NextNonce(),
		})
	}
	return state, err
}

// logHashRate logs the search's hash rate every interval and feeds the hashes
// tried into minerMetrics. The returned function stops it and accounts for
// the hashes tried since the last tick.
func logHashRate(search *mining.Search, minerMetrics *metrics.Metrics, interval time.Duration) (stop func()) {
	done := make(chan struct{})
	stopped := make(chan struct{})

	spawn("logHashRate", func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		lastCheck := time.Now()
		var lastHashesTried uint64
		for {
			select {
			case <-ticker.C:
				currentHashesTried := search.HashesTried()
				currentTime := time.Now()
				kiloHashesTried := float64(currentHashesTried-lastHashesTried) / 1000.0
				hashRate := kiloHashesTried / currentTime.Sub(lastCheck).Seconds()
				log.Infof("Current hash rate is %.2f Khash/s", hashRate)
				minerMetrics.AddHashesTried(currentHashesTried - lastHashesTried)
				lastCheck = currentTime
				lastHashesTried = currentHashesTried
			case <-done:
				minerMetrics.AddHashesTried(search.HashesTried() - lastHashesTried)
				return
			}
		}
	})

	return func() {
		close(done)
		<-stopped
	}
}
