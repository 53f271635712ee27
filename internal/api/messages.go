package api

import "time"

type GetStatusRequest struct{}

type StatusResponse struct {
	Profile           string    `json:"profile"`
	SignedIn          bool      `json:"signed_in"`
	UserID            string    `json:"user_id,omitempty"`
	Link              string    `json:"link"`
	LinkSince         time.Time `json:"link_since"`
	Backend           string    `json:"backend"`
	PresenceTransport string    `json:"presence_transport"`
	PhoneNumber       string    `json:"phone_number,omitempty"`
	UptimeMs          int64     `json:"uptime_ms"`
	EventsDropped     uint64    `json:"events_dropped"`
}

type SignInRequest struct {
	AccessToken string `json:"access_token"`
}

type SignInResponse struct {
	UserID string `json:"user_id"`
}

type SignOutRequest struct{}

type SignOutResponse struct {
	UserID string `json:"user_id,omitempty"`
}

type PairRequest struct{}

// PairEvent is one step of linking the WhatsApp presence transport.
type PairEvent struct {
	Type    string `json:"type"`
	QRCode  string `json:"qr_code,omitempty"`
	Message string `json:"message,omitempty"`
}

type ComputeDebtsRequest struct{}

// DebtSummary carries TotalOwed as an exact decimal string.
type DebtSummary struct {
	CounterpartyID string `json:"counterparty_id"`
	TotalOwed      string `json:"total_owed"`
	OverdueCount   int    `json:"overdue_count"`
}

type ComputeDebtsResponse struct {
	Debts     []DebtSummary `json:"debts"`
	Total     string        `json:"total"`
	AsOf      time.Time     `json:"as_of"`
	Since     time.Time     `json:"since"`
	FromCache bool          `json:"from_cache"`
}

type RecordTransactionRequest struct {
	CounterpartyID string    `json:"counterparty_id,omitempty"`
	Type           string    `json:"type"`
	Amount         string    `json:"amount"`
	Date           time.Time `json:"date,omitzero"`
	Description    string    `json:"description,omitempty"`
}

type RecordTransactionResponse struct {
	ID string `json:"id"`
}

type MarkPaidRequest struct {
	TransactionID string `json:"transaction_id"`
}

type MarkPaidResponse struct{}

type SendTypingRequest struct {
	OtherUserID string `json:"other_user_id"`
	IsTyping    bool   `json:"is_typing"`
}

type SendTypingResponse struct{}

type IsTypingRequest struct {
	UserID string `json:"user_id"`
}

type IsTypingResponse struct {
	UserID   string `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

type WatchTypingRequest struct{}

// TypingEvent is streamed by WatchTyping whenever someone starts or stops
// typing to the signed-in user.
type TypingEvent struct {
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	IsTyping   bool      `json:"is_typing"`
	OccurredAt time.Time `json:"occurred_at"`
}
