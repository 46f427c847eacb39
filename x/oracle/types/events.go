package types

// Oracle module event type constants
const (
	EventTypeRequestReceived      = "request_received"
	EventTypeRequestFulfilled     = "request_fulfilled"
	EventTypeRequestExpired       = "request_expired"
	EventTypeWithdraw             = "withdraw"
	EventTypeParamsUpdated        = "params_updated"
	EventTypeOwnershipTransferred = "ownership_transferred"
)

// Event attribute keys
const (
	AttributeKeyHandle           = "handle"
	AttributeKeyContentReference = "content_reference"
	AttributeKeyResultReference  = "result_reference"
	AttributeKeyRequester        = "requester"
	AttributeKeyOwner            = "owner"
	AttributeKeyPreviousOwner    = "previous_owner"
	AttributeKeyAmount           = "amount"
	AttributeKeyOracle           = "oracle"
)
