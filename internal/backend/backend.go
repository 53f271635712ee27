// Package backend declares what the daemon consumes from the hosted backend:
// a query executor over the transactions table, remote procedure calls and a
// realtime change feed for typing status. The store, pg and wa packages
// provide implementations.
package backend

import (
	"context"
	"time"
)

// Transaction types and payment statuses as stored by the backend.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"

	StatusPending = "pending"
	StatusPaid    = "paid"
)

// Remote procedures.
const (
	ProcUpdateTypingStatus  = "update_typing_status"
	ProcMarkTransactionPaid = "mark_transaction_paid"
)

// TransactionRow is one row of the transactions table. The backend owns it;
// the daemon only reads it. Amount keeps the backend's textual numeric form
// so that malformed values can be detected rather than coerced.
type TransactionRow struct {
	ID             string
	OwnerID        string
	CounterpartyID *string
	Type           string
	PaymentStatus  string
	Date           time.Time
	Amount         string
	Description    string
}

// TransactionFilter narrows a select on the transactions table. Empty fields
// do not filter.
type TransactionFilter struct {
	OwnerID         string
	Type            string
	PaymentStatus   string
	Since           time.Time
	HasCounterparty bool
}

// TransactionQuerier is the query executor for the transactions table.
type TransactionQuerier interface {
	SelectTransactions(ctx context.Context, f TransactionFilter) ([]TransactionRow, error)
}

// TransactionWriter is implemented by backends that accept new transactions.
type TransactionWriter interface {
	InsertTransaction(ctx context.Context, row TransactionRow) error
}

// Params are named procedure arguments.
type Params map[string]any

// Caller invokes a remote procedure.
type Caller interface {
	Call(ctx context.Context, procedure string, params Params) error
}

// TypingChange is the new state of a typing_status row: UserID is the party
// composing, TargetID the party it is composing to.
type TypingChange struct {
	UserID    string
	TargetID  string
	IsTyping  bool
	UpdatedAt time.Time
}

// Subscription is an open realtime channel.
type Subscription interface {
	Close() error
}

// Realtime opens change feeds. SubscribeTyping delivers changes whose
// TargetID equals targetID until the subscription is closed.
type Realtime interface {
	SubscribeTyping(ctx context.Context, targetID string, onEvent func(TypingChange)) (Subscription, error)
}

// TypingParams builds the argument set for ProcUpdateTypingStatus.
func TypingParams(userID, targetID string, isTyping bool) Params {
	return Params{"user_id": userID, "target_id": targetID, "is_typing": isTyping}
}

// ParseTypingParams is the inverse of TypingParams.
func ParseTypingParams(p Params) (userID, targetID string, isTyping bool, err error) {
	userID, ok1 := p["user_id"].(string)
	targetID, ok2 := p["target_id"].(string)
	isTyping, ok3 := p["is_typing"].(bool)
	if !ok1 || !ok2 || !ok3 || userID == "" || targetID == "" {
		return "", "", false, &ParamError{Procedure: ProcUpdateTypingStatus, Params: p}
	}
	return userID, targetID, isTyping, nil
}

// MarkPaidParams builds the argument set for ProcMarkTransactionPaid.
func MarkPaidParams(ownerID, transactionID string) Params {
	return Params{"owner_id": ownerID, "transaction_id": transactionID}
}

// ParseMarkPaidParams is the inverse of MarkPaidParams.
func ParseMarkPaidParams(p Params) (ownerID, transactionID string, err error) {
	ownerID, ok1 := p["owner_id"].(string)
	transactionID, ok2 := p["transaction_id"].(string)
	if !ok1 || !ok2 || ownerID == "" || transactionID == "" {
		return "", "", &ParamError{Procedure: ProcMarkTransactionPaid, Params: p}
	}
	return ownerID, transactionID, nil
}
