package events

const PostingDiscoveredTopic = "posting:discovered"

// PostingDiscovered is published once per posting on its first sighting.
type PostingDiscovered struct {
	HnID     string
	Title    string
	URL      string
	Company  *string
	Location *string
}
