package model

// QueryRequest represents a natural-language query request.
// Either Query or Messages must be set; Query is wrapped as a single user message.
type QueryRequest struct {
	Query    string    `json:"query"`
	Messages []Message `json:"messages,omitempty" binding:"omitempty,dive"`
}

// Conversation returns the request as an ordered message list
func (r QueryRequest) Conversation() []Message {
	if len(r.Messages) > 0 {
		return r.Messages
	}
	return []Message{{Role: RoleUser, Content: r.Query}}
}

// QueryResponse represents the result of one pipeline run
type QueryResponse struct {
	RunID            string    `json:"run_id"`
	Response         string    `json:"response"`
	Intent           Intent    `json:"intent"`
	Total            int       `json:"total"`
	EnrichedListings []Listing `json:"enriched_listings"`
	Conversation     []Message `json:"conversation"`
	Took             int64     `json:"took_ms"` // Response time in milliseconds
}

// RunRecord is the persisted summary of a completed run
type RunRecord struct {
	RunID          string
	Query          string
	Intent         Intent
	ResultCount    int
	ResponseTimeMs int
}
