package domain

import "time"

// AdProgress describes the position within an ad pod. It exists only
// while the advertisement mode is active: it is rebuilt on every ad
// start and cleared on per-ad completion, pod completion, and mode exit.
type AdProgress struct {
	// AdIndex is the 1-based position of the current ad in the pod.
	AdIndex  int `json:"ad_index"`
	TotalAds int `json:"total_ads"`

	Elapsed  time.Duration `json:"elapsed"`
	Duration time.Duration `json:"duration"`

	Skippable bool `json:"skippable"`
	// SkipUnlockRemaining is how long until the skip control unlocks.
	// Zero once the skip offset has elapsed; always zero for
	// non-skippable ads.
	SkipUnlockRemaining time.Duration `json:"skip_unlock_remaining"`
}
