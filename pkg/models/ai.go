package models

import "time"

// ChatRequest is a tutoring prompt sent to the AI helper endpoint.
type ChatRequest struct {
	Message string `json:"message"`
	Subject string `json:"subject,omitempty"`
	Topic   string `json:"topic,omitempty"`
}

type ChatResponse struct {
	Response  string    `json:"response"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
}
