package scraperapi

// QueryResponse is the payload returned by the scraper's query endpoint.
// Each document is one scrape batch; posts inside a document keep the order
// they were scraped in.
type QueryResponse struct {
	Documents []Document `json:"documents"`
}

type Document struct {
	StartPostID string `json:"StartPostId"`
	Posts       []Post `json:"Posts"`
}

type Post struct {
	ArticleID string `json:"ArticleId"`
	// MediaData carries the image bytes base64-encoded
	MediaData string `json:"MediaData"`
}
