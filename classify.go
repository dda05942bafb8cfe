package gitver

import (
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Classification signature bits. A tag's signature combines where it
// sits (on HEAD or not), whether the strategy recognises it as a
// version tag, and its kind (annotated or lightweight).
const (
	sigAnnotated = 1 << iota
	sigVersion
	sigOnHead
)

// classifyTags peels every raw tag and routes it into the twelve
// overlapping classification sets in a single pass over the tag list.
// The routing is a decision table over the 3-bit signature; higher
// specificity sets always imply membership in their general
// counterparts (a version tag on HEAD is also an "all version" tag).
//
// One historical quirk is intentional: a non-version tag sitting on
// HEAD joins only the head sets, not the all-lightweight set.
func classifyTags(repo *git.Repository, rawTags []*plumbing.Reference, headID plumbing.Hash, isVersionTag func(TagRef) bool) TagSets {
	var sets TagSets

	for _, raw := range rawTags {
		tag := peelTag(repo, raw)
		sets.All = append(sets.All, tag)

		sig := 0
		if tag.Target == headID {
			sig |= sigOnHead
		}
		if isVersionTag(tag) {
			sig |= sigVersion
		}
		if tag.Annotated {
			sig |= sigAnnotated
		}

		switch sig {
		case sigOnHead | sigVersion:
			sets.Head = append(sets.Head, tag)
			sets.HeadVersion = append(sets.HeadVersion, tag)
			sets.HeadLightweight = append(sets.HeadLightweight, tag)
			sets.HeadVersionLightweight = append(sets.HeadVersionLightweight, tag)
			sets.AllVersion = append(sets.AllVersion, tag)
			sets.AllVersionLightweight = append(sets.AllVersionLightweight, tag)
			sets.AllLightweight = append(sets.AllLightweight, tag)

		case sigVersion:
			sets.AllVersion = append(sets.AllVersion, tag)
			sets.AllVersionLightweight = append(sets.AllVersionLightweight, tag)
			sets.AllLightweight = append(sets.AllLightweight, tag)

		case 0:
			sets.AllLightweight = append(sets.AllLightweight, tag)

		case sigOnHead | sigVersion | sigAnnotated:
			sets.Head = append(sets.Head, tag)
			sets.HeadVersion = append(sets.HeadVersion, tag)
			sets.HeadAnnotated = append(sets.HeadAnnotated, tag)
			sets.HeadVersionAnnotated = append(sets.HeadVersionAnnotated, tag)
			sets.AllVersion = append(sets.AllVersion, tag)
			sets.AllVersionAnnotated = append(sets.AllVersionAnnotated, tag)
			sets.AllAnnotated = append(sets.AllAnnotated, tag)

		case sigVersion | sigAnnotated:
			sets.AllVersion = append(sets.AllVersion, tag)
			sets.AllVersionAnnotated = append(sets.AllVersionAnnotated, tag)
			sets.AllAnnotated = append(sets.AllAnnotated, tag)

		case sigAnnotated:
			sets.AllAnnotated = append(sets.AllAnnotated, tag)

		case sigOnHead | sigAnnotated:
			sets.Head = append(sets.Head, tag)
			sets.HeadAnnotated = append(sets.HeadAnnotated, tag)
			sets.AllAnnotated = append(sets.AllAnnotated, tag)

		case sigOnHead:
			sets.Head = append(sets.Head, tag)
		}
	}

	return sets
}

// tagsOf filters tags down to those targeting the given commit,
// preserving order.
func tagsOf(tags []TagRef, id plumbing.Hash) []TagRef {
	var out []TagRef
	for _, tag := range tags {
		if tag.Target == id {
			out = append(out, tag)
		}
	}
	return out
}
