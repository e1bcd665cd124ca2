package models

// Problem is a catalog entry. Problems are never mutated after ingest.
type Problem struct {
	ID        string   `json:"id"`
	ContestID int      `json:"contest_id"`
	Index     string   `json:"index"`
	Name      string   `json:"name"`
	Rating    int      `json:"rating"`
	Tags      []string `json:"tags"`
	URL       string   `json:"url"`
}

// HasTag reports whether the problem carries the normalized tag.
func (p Problem) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

type TopicCount struct {
	Topic    string `json:"topic"`
	Problems int    `json:"problems"`
}

type TopicsResponse struct {
	Topics []TopicCount `json:"topics"`
}

type CatalogRefreshResponse struct {
	Problems int    `json:"problems"`
	Message  string `json:"message"`
}
