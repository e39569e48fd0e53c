// Package analyzer contains the incremental synchronization engine and the
// duplicate detection engine.
//
// The Analyzer walks the scraper's paginated query interface exactly once
// per execution. On the first run against an empty store every post is
// bulk-admitted as an original; on later runs only posts upstream of the
// last previously processed article are routed through the Detector, which
// classifies each candidate against the stored corpus.
//
// Classification is a three-stage funnel per candidate/target pair:
//
//  1. Scale normalization. Pairs whose aspect ratios differ beyond a
//     tolerance are conclusively not duplicates; otherwise the larger
//     image is downscaled to match the smaller.
//  2. Perceptual hash distance, clamped at a cutoff. Any nonzero distance
//     disqualifies the pair outright.
//  3. Structural similarity, then mean squared error. SSIM filters out
//     coincidental hash collisions; the MSE ceiling rejects reused meme
//     templates that only differ in caption text.
//
// The first target surviving all stages while still being an original wins;
// the candidate is linked as its repost and the evidence scores are
// appended to the original's record. A candidate with no surviving match
// becomes a new original.
//
// A run always ends in one of three states: the upstream is exhausted, the
// resume boundary was reached, or a short page signalled the data source
// has caught up. Transport, storage, and payload failures abort the run
// without finalizing its run record.
package analyzer
