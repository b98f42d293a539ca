package docstore

// SearchResult is a ranked chunk returned to callers. Score is a similarity
// in (0, 1], higher is better.
type SearchResult struct {
	ChunkID      string
	DocumentID   string
	DocumentName string
	Content      string
	Score        float64
	ChunkIndex   int
	Tags         []string
}

// Hit is a raw index match before ranking. Distance is the index's distance
// metric, lower is closer.
type Hit struct {
	ChunkID      string
	DocumentID   string
	DocumentName string
	Content      string
	ChunkIndex   int
	Tags         []string
	Distance     float64
}

// Filter restricts a search to specific documents or tags. Empty fields
// match everything.
type Filter struct {
	DocumentIDs []string
	Tags        []string
}

func (f Filter) matches(h Hit) bool {
	if len(f.DocumentIDs) > 0 {
		found := false
		for _, id := range f.DocumentIDs {
			if id == h.DocumentID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	// any overlap between the requested and stored tag sets is a match
	if len(f.Tags) > 0 {
		for _, want := range f.Tags {
			for _, tag := range h.Tags {
				if tag == want {
					return true
				}
			}
		}
		return false
	}

	return true
}

// Stats aggregates an owner's indexed corpus.
type Stats struct {
	TotalDocuments int
	TotalChunks    int
	TotalSize      int
	DocumentTypes  map[string]int
	Tags           map[string]int
}

// IngestedDoc identifies a document already present in the index, keyed by
// the source file it was ingested from.
type IngestedDoc struct {
	DocumentID string
	Filename   string
	Crc        uint32
}
