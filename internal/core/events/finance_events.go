package events

const (
	EventTypeTransactionCreated   = "transaction.created"
	EventTypeTransactionsImported = "transactions.imported"
	EventTypeUserDeleted          = "user.deleted"
)

type TransactionCreatedEvent struct {
	BaseEvent
	TransactionID int64  `json:"transaction_id"`
	UserID        int64  `json:"user_id"`
	Amount        string `json:"amount"`
}

func NewTransactionCreatedEvent(transactionID, userID int64, amount string) *TransactionCreatedEvent {
	return &TransactionCreatedEvent{
		BaseEvent: newBase(EventTypeTransactionCreated, map[string]interface{}{
			"transaction_id": transactionID,
			"user_id":        userID,
			"amount":         amount,
		}),
		TransactionID: transactionID,
		UserID:        userID,
		Amount:        amount,
	}
}

// TransactionsImportedEvent summarises one reconciled CSV upload.
type TransactionsImportedEvent struct {
	BaseEvent
	UserID            int64 `json:"user_id"`
	Imported          int   `json:"imported"`
	SkippedDuplicates int   `json:"skipped_duplicates"`
	SkippedInvalid    int   `json:"skipped_invalid"`
}

func NewTransactionsImportedEvent(userID int64, imported, duplicates, invalid int) *TransactionsImportedEvent {
	return &TransactionsImportedEvent{
		BaseEvent: newBase(EventTypeTransactionsImported, map[string]interface{}{
			"user_id":            userID,
			"imported":           imported,
			"skipped_duplicates": duplicates,
			"skipped_invalid":    invalid,
		}),
		UserID:            userID,
		Imported:          imported,
		SkippedDuplicates: duplicates,
		SkippedInvalid:    invalid,
	}
}

// UserDeletedEvent is published synchronously before the account row is
// removed, so subscribers can still read the user's data.
type UserDeletedEvent struct {
	BaseEvent
	UserID    int64 `json:"user_id"`
	DeletedBy int64 `json:"deleted_by"`
}

func NewUserDeletedEvent(userID, deletedBy int64) *UserDeletedEvent {
	return &UserDeletedEvent{
		BaseEvent: newBase(EventTypeUserDeleted, map[string]interface{}{
			"user_id":    userID,
			"deleted_by": deletedBy,
		}),
		UserID:    userID,
		DeletedBy: deletedBy,
	}
}
