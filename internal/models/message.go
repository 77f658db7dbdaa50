// Package models defines the data structures exchanged between the
// pipeline, the stores, and the ingress adapters.
package models

import "time"

// Mode distinguishes text messages from voice messages.
type Mode string

const (
	ModeText  Mode = "text"
	ModeVoice Mode = "voice"
)

// LanguageUnknown is the sentinel used when detection fails or there is
// no text to detect from.
const LanguageUnknown = "Unknown"

// Message is one processed chat message. Append-only: once written to
// the log it is never updated.
type Message struct {
	ID               int64     `json:"id"`
	SenderID         string    `json:"sender_id"`
	ReceiverID       string    `json:"receiver_id"`
	Mode             Mode      `json:"mode"`
	Original         string    `json:"original"`
	Translated       string    `json:"translated"`
	SenderLanguage   string    `json:"sender_language"`
	ReceiverLanguage string    `json:"receiver_language"`
	CreatedAt        time.Time `json:"created_at"`
}

// User is a chat participant. Created on first contact with the default
// language, never deleted by the relay.
type User struct {
	ID        string    `json:"user_id"`
	Name      string    `json:"name,omitempty"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

// DeliveryEvent is the payload pushed to a receiver's live connections.
type DeliveryEvent struct {
	Type             string    `json:"type"`
	SenderID         string    `json:"sender_id"`
	Original         string    `json:"original"`
	Translated       string    `json:"translated"`
	SenderLanguage   string    `json:"sender_language"`
	ReceiverLanguage string    `json:"receiver_language"`
	Timestamp        time.Time `json:"timestamp"`
}

// StatusEvent announces a user going online or offline.
type StatusEvent struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// Ack is the synchronous answer returned to the submitting caller. The
// same translated payload that is fanned out to the receiver.
type Ack struct {
	Success          bool   `json:"success"`
	SenderLanguage   string `json:"sender_language"`
	ReceiverLanguage string `json:"receiver_language"`
	Original         string `json:"original"`
	Translated       string `json:"translated"`
}
