// Package notify delivers outbound messages ("lead created", "agent invited").
// Every driver implements Notifier; the server picks one from NOTIFY_DRIVER.
package notify

import (
	"context"
	"encoding/json"
	"time"
)

// Notifier sends one message to one recipient.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Message is the payload published by the queue-style drivers.
type Message struct {
	From    string    `json:"from"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

func newMessage(from, to, subject, body string) Message {
	return Message{From: from, To: to, Subject: subject, Body: body, SentAt: time.Now().UTC()}
}

func (m Message) encode() ([]byte, error) {
	return json.Marshal(m)
}

// 固定模板
const (
	LeadCreatedSubject = "A lead has been created"
	LeadCreatedBody    = "Go to the site to see the new lead"

	AgentInvitedSubject = "You are invited to be an agent"
	AgentInvitedBody    = "You were added as an agent on the django crm. Please come and login to start working."
)
