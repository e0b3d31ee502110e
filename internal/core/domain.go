package core

import (
	"errors"
	"strings"
	"time"
)

const (
	TypeSent       TxType = "sent"
	TypeReceived   TxType = "received"
	TypePayment    TxType = "payment"
	TypeWithdrawal TxType = "withdrawal"
	TypeAirtime    TxType = "airtime"
	TypeUnknown    TxType = "unknown"
)

type (
	// TxType is the closed set of transaction classifications. TypeUnknown
	// is a valid terminal classification, not an error state.
	TxType string

	// Transaction is one structured financial event derived from one
	// provider message.
	Transaction struct {
		ID              string // native message id when available
		SMSID           string
		Type            TxType
		Amount          Money
		Recipient       string // populated when money flows out
		Sender          string // populated when money flows in
		Balance         Money  // balance as stated by the provider, trusted as reported
		TransactionCode string
		Date            time.Time
		RawMessage      string
		Category        string // mutable after creation
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyID         = errors.New("empty transaction id")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrNoCounterparty  = errors.New("missing counterparty")
	ErrBothParties     = errors.New("both sender and recipient set")
	ErrEmptyRawMessage = errors.New("empty raw message")
)

// Valid reports whether t is one of the closed enumeration values.
func (t TxType) Valid() bool {
	switch t {
	case TypeSent, TypeReceived, TypePayment, TypeWithdrawal, TypeAirtime, TypeUnknown:
		return true
	}
	return false
}

// Inbound reports whether money flows in for this type.
func (t TxType) Inbound() bool {
	return t == TypeReceived
}

// Counterparty returns whichever of sender/recipient is populated.
func (tx Transaction) Counterparty() string {
	if tx.Type.Inbound() {
		return tx.Sender
	}
	return tx.Recipient
}

// Spend reports whether the transaction counts toward total spend.
// Everything that is not money received is treated as money out.
func (tx Transaction) Spend() bool {
	return tx.Type != TypeReceived
}

func (tx Transaction) Validate() error {
	if strings.TrimSpace(tx.ID) == "" {
		return ErrEmptyID
	}
	if !tx.Type.Valid() {
		return ErrInvalidType
	}
	if tx.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	hasSender := strings.TrimSpace(tx.Sender) != ""
	hasRecipient := strings.TrimSpace(tx.Recipient) != ""
	if hasSender && hasRecipient {
		return ErrBothParties
	}
	switch {
	case tx.Type.Inbound():
		if !hasSender {
			return ErrNoCounterparty
		}
	case tx.Type == TypeUnknown:
		// unknowns carry whatever the parser could salvage
	default:
		if !hasRecipient {
			return ErrNoCounterparty
		}
	}
	if strings.TrimSpace(tx.RawMessage) == "" {
		return ErrEmptyRawMessage
	}
	return nil
}
