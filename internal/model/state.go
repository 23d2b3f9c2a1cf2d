package model

import "slices"

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single role-tagged conversation entry
type Message struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content"`
}

// QueryState is the value threaded through every pipeline stage.
// Stages return a new QueryState and never mutate the slices of their input.
type QueryState struct {
	Conversation []Message `json:"conversation"`

	District        *string `json:"district"`
	UnitType        *string `json:"unit_type"`
	PriceCeiling    *int    `json:"price_ceiling"`
	ProximityRadius *int    `json:"proximity_radius"`
	StationName     *string `json:"station_name"`

	Listings         []Listing `json:"listings"`
	EnrichedListings []Listing `json:"enriched_listings"`
}

// NewQueryState starts a state for a conversation with empty result sets
func NewQueryState(conversation []Message) QueryState {
	return QueryState{
		Conversation:     slices.Clone(conversation),
		Listings:         []Listing{},
		EnrichedListings: []Listing{},
	}
}

// Intent returns the five intent fields of the state
func (s QueryState) Intent() Intent {
	return Intent{
		District:        s.District,
		StationName:     s.StationName,
		UnitType:        s.UnitType,
		PriceCeiling:    s.PriceCeiling,
		ProximityRadius: s.ProximityRadius,
	}
}

// WithIntent overwrites all five intent fields, including with nils
func (s QueryState) WithIntent(in Intent) QueryState {
	s.District = in.District
	s.StationName = in.StationName
	s.UnitType = in.UnitType
	s.PriceCeiling = in.PriceCeiling
	s.ProximityRadius = in.ProximityRadius
	return s
}

// WithMessage returns a copy of the state with msg appended to the conversation
func (s QueryState) WithMessage(msg Message) QueryState {
	conv := make([]Message, 0, len(s.Conversation)+1)
	conv = append(conv, s.Conversation...)
	s.Conversation = append(conv, msg)
	return s
}

// FirstUserMessage returns the content of the first user-authored message
func (s QueryState) FirstUserMessage() (string, bool) {
	for _, m := range s.Conversation {
		if m.Role == RoleUser {
			return m.Content, true
		}
	}
	return "", false
}

// LastAssistantMessage returns the content of the most recent assistant message
func (s QueryState) LastAssistantMessage() (string, bool) {
	for i := len(s.Conversation) - 1; i >= 0; i-- {
		if s.Conversation[i].Role == RoleAssistant {
			return s.Conversation[i].Content, true
		}
	}
	return "", false
}

// StringPtr returns a pointer to v
func StringPtr(v string) *string {
	return &v
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}
