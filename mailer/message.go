package mailer

import "time"

// Kind distinguishes the code a Message carries.
type Kind string

const (
	KindVerification  Kind = "verification"
	KindPasswordReset Kind = "password_reset"
)

// Message is the payload published for each code.
type Message struct {
	Kind     Kind      `json:"kind"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	Code     string    `json:"code"`
	SentAt   time.Time `json:"sent_at"`
}
