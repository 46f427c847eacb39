package types

// token module event types
const (
	EventTypeTransfer = ModuleName + "_transfer"
	EventTypeMint     = ModuleName + "_mint"

	AttributeKeySender    = "sender"
	AttributeKeyRecipient = "recipient"
	AttributeKeyAmount    = "amount"
)
