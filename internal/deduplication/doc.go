// Package deduplication decides whether a proposed issue duplicates an
// existing one.
//
// # Overview
//
// Before an issue is created, the workflow asks the tracker's search endpoint
// for similar issues. Each result carries a similarity score in [0,1]. The
// Detector ranks those candidates, keeps the best few and hands them to a
// Judge:
//
//   - ThresholdJudge: the top candidate is a duplicate iff its score reaches
//     SimilarityThreshold. No network, no failure modes.
//   - SemanticJudge: a language model is asked about each candidate in turn,
//     and the first "yes" wins.
//
// The judge is chosen once when the Detector is built. Semantic judging is
// switched off when no provider key is configured.
//
// # Failure handling
//
// Evaluate returns an error only for ErrInvalidScore (a NaN or out-of-range
// score from the ranker). Everything else degrades:
//
//   - An unparseable model reply counts as "not a duplicate" for that
//     candidate and the scan continues.
//   - A provider failure (network, auth, timeout, open circuit) aborts the
//     scan; Evaluate then reruns the ThresholdJudge on the top candidate and
//     reports method semantic_fallback_to_threshold.
//
// Retries, rate limiting and the circuit breaker live in package ai; by
// default a failed comparison is not retried so fallback stays fast.
//
// # Usage
//
//	cfg := deduplication.DefaultConfig()
//	detector, err := deduplication.NewDetector(cfg, supervisor)
//	if err != nil {
//	    return err
//	}
//
//	verdict, err := detector.Evaluate(ctx, draft, candidates)
//	if err != nil {
//	    // ErrInvalidScore: the ranker returned garbage
//	}
//	if verdict.IsDuplicate {
//	    log.Printf("reusing %s (%s, %.2f)", verdict.MatchedIssueID, verdict.Method, verdict.ScoreOrConfidence)
//	}
package deduplication
