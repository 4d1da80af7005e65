// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/AeroFlaire/reference-checker/pkg/types"
)

// ErrParserOutage is returned by Coordinator.Run when the generative
// parser was unreachable for every citation that needed it. Results for
// the sniper and structured-hint paths are still reported.
var ErrParserOutage = errors.New("generative parser unreachable for all slow-pass citations")

// Coordinator runs the Checker over a batch with a fixed worker pool and
// collects results into the report buckets. Bucket order is arrival
// order, not input order.
type Coordinator struct {
	Checker *Checker
	Workers int
}

// outcome pairs a result with the checker's parser error for the
// collector.
type outcome struct {
	result types.Result
	err    error
}

// Run verifies all citations and returns the bucketed report. Progress
// lines are written to w as results arrive. The error is nil unless the
// generative parser was down for the whole batch.
func (co *Coordinator) Run(ctx context.Context, citations []types.Citation, w io.Writer) (*types.Report, error) {
	start := time.Now()
	report := &types.Report{}

	accepted := make([]types.Citation, 0, len(citations))
	for _, cit := range citations {
		if co.Checker.Drops(cit.Text) {
			report.Dropped++
			continue
		}
		accepted = append(accepted, cit)
	}

	workers := co.Workers
	if workers <= 0 {
		workers = types.DefaultVerifyConfig().Workers
	}

	tasks := make(chan types.Citation)
	results := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cit := range tasks {
				res, err := co.Checker.Check(ctx, cit)
				results <- outcome{result: res, err: err}
			}
		}()
	}

	go func() {
		defer close(tasks)
		for _, cit := range accepted {
			select {
			case <-ctx.Done():
				return
			case tasks <- cit:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var slowFailed, slowParsed int
	for oc := range results {
		if oc.err != nil {
			slowFailed++
		} else if q := oc.result.Query; q != nil && q.Source == "generative-parse" {
			slowParsed++
		}
		report.Add(oc.result)
		fmt.Fprintf(w, "%-15s %s\n", oc.result.Verdict, truncate(oc.result.Citation.Text, 70))
	}

	report.SetTiming(time.Since(start), len(citations))

	if slowFailed > 0 && slowParsed == 0 {
		return report, ErrParserOutage
	}
	return report, nil
}

// truncate caps the progress line at n runes; byte slicing could cut a
// multi-byte rune in half.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
