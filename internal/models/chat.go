package models

import "time"

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Username string `json:"username"`
	Question string `json:"question"`
}

// ChatResponse is returned by a successful chat request.
type ChatResponse struct {
	Chat            string   `json:"chat"`
	Sources         []string `json:"sources"`
	OriginalChunks  int      `json:"originalChunks"`
	ValidatedChunks int      `json:"validatedChunks"`
	AIProcessed     bool     `json:"aiProcessed"`
}

// Exchange is one answered question kept in a user's history.
type Exchange struct {
	Question    string    `json:"question"`
	Answer      string    `json:"answer"`
	Sources     []string  `json:"sources"`
	AIProcessed bool      `json:"aiProcessed"`
	AskedAt     time.Time `json:"askedAt"`
}
