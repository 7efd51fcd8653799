package posting

// Group is one bucket of the unposted queue.
type Group struct {
	Reason    Reason     `json:"reason"`
	Count     int        `json:"count"`
	Documents []Document `json:"documents"`
}

// Groups is the unposted queue partitioned by blocking reason. Every input
// document lands in exactly one group; empty groups are omitted.
type Groups []Group

// Classify partitions documents by blocking reason. Known reasons follow the
// canonical order; any other reason follows in first-seen order. Input order
// is preserved inside a bucket.
func Classify(docs []Document) Groups {
	buckets := make(map[Reason][]Document)
	var extra []Reason
	for _, doc := range docs {
		reason := doc.Reason()
		if _, seen := buckets[reason]; !seen && !isCanonical(reason) {
			extra = append(extra, reason)
		}
		buckets[reason] = append(buckets[reason], doc)
	}

	order := append(append([]Reason{}, reasonOrder...), extra...)
	groups := make(Groups, 0, len(buckets))
	for _, reason := range order {
		list := buckets[reason]
		if len(list) == 0 {
			continue
		}
		groups = append(groups, Group{Reason: reason, Count: len(list), Documents: list})
	}
	return groups
}

func isCanonical(r Reason) bool {
	for _, known := range reasonOrder {
		if known == r {
			return true
		}
	}
	return false
}

// Counts returns the size of every non-empty bucket.
func (g Groups) Counts() map[Reason]int {
	out := make(map[Reason]int, len(g))
	for _, group := range g {
		out[group.Reason] = group.Count
	}
	return out
}

// Total is the number of classified documents.
func (g Groups) Total() int {
	total := 0
	for _, group := range g {
		total += group.Count
	}
	return total
}

// Bucket returns the documents blocked by reason, or nil.
func (g Groups) Bucket(reason Reason) []Document {
	for _, group := range g {
		if group.Reason == reason {
			return group.Documents
		}
	}
	return nil
}
