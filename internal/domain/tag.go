package domain

// Tag is a provenance label attached to a candidate by the discovery
// adapter that surfaced it.
type Tag string

const (
	// TagFreshLaunch marks tokens surfaced by the launch stream within
	// minutes of pool creation. Candidates carrying this tag bypass the
	// overextension filter (fresh launches swing hard without topping).
	TagFreshLaunch Tag = "FRESH_LAUNCH"

	// TagLaunchpad marks tokens trading on the early launch venue. The
	// liquidity floor is lower for this venue than for established DEXes.
	TagLaunchpad Tag = "LAUNCHPAD"

	TagTrending  Tag = "TRENDING"
	TagBoosted   Tag = "BOOSTED"
	TagTopGainer Tag = "TOP_GAINER"
	TagSearch    Tag = "SEARCH"
)

// Tier partitions tags by screening priority. Lower value = screened first.
type Tier int

const (
	TierLaunch Tier = iota // freshest launches, screened by age ascending
	TierSocial             // trending/boosted, screened by score descending
	TierGeneric            // gainers and search hits, by 24h change descending
)

// TierOf returns the screening tier for a tag.
func TierOf(t Tag) Tier {
	switch t {
	case TagFreshLaunch, TagLaunchpad:
		return TierLaunch
	case TagTrending, TagBoosted:
		return TierSocial
	default:
		return TierGeneric
	}
}

// IsValid checks if the tag is a known value.
func (t Tag) IsValid() bool {
	switch t {
	case TagFreshLaunch, TagLaunchpad, TagTrending, TagBoosted, TagTopGainer, TagSearch:
		return true
	}
	return false
}

// String returns the string representation of Tag.
func (t Tag) String() string {
	return string(t)
}

// TagSet is an unordered set of provenance tags.
type TagSet map[Tag]struct{}

// NewTagSet builds a set from a list of tags.
func NewTagSet(tags ...Tag) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// Has reports whether the set contains the tag.
func (s TagSet) Has(t Tag) bool {
	_, ok := s[t]
	return ok
}

// Union merges another set into a copy of this one.
func (s TagSet) Union(other TagSet) TagSet {
	out := make(TagSet, len(s)+len(other))
	for t := range s {
		out[t] = struct{}{}
	}
	for t := range other {
		out[t] = struct{}{}
	}
	return out
}

// BestTier returns the highest-priority tier present in the set.
func (s TagSet) BestTier() Tier {
	best := TierGeneric
	for t := range s {
		if tier := TierOf(t); tier < best {
			best = tier
		}
	}
	return best
}

// Slice returns the tags in deterministic (lexical) order.
func (s TagSet) Slice() []Tag {
	out := make([]Tag, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
