package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Session errors
	CodeSessionEmptyOwner      Code = "SESSION_EMPTY_OWNER"
	CodeSessionOwnerMismatch   Code = "SESSION_OWNER_MISMATCH"
	CodeSessionBadTransition   Code = "SESSION_INVALID_STATE_TRANSITION"
	CodeSessionAlreadyActive   Code = "SESSION_ALREADY_ACTIVE"
	CodeSessionMaterializing   Code = "SESSION_MATERIALIZATION_IN_PROGRESS"
	CodeSessionSlotsIncomplete Code = "SESSION_SLOTS_INCOMPLETE"

	// Goal errors
	CodeGoalEmptyOwner Code = "GOAL_EMPTY_OWNER"
	CodeGoalEmptyTitle Code = "GOAL_EMPTY_TITLE"
	CodeGoalEmptyPlan  Code = "GOAL_EMPTY_PLAN"

	// Board errors
	CodeBoardNotLinked   Code = "BOARD_NOT_LINKED"
	CodeBoardAuthExpired Code = "BOARD_AUTH_EXPIRED"
	CodeBoardUnavailable Code = "BOARD_UNAVAILABLE"

	// Link grant errors
	CodeLinkGrantInvalid  Code = "LINK_GRANT_INVALID"
	CodeLinkGrantExpired  Code = "LINK_GRANT_EXPIRED"
	CodeLinkGrantMismatch Code = "LINK_GRANT_MISMATCH"

	// Planner errors
	CodePlannerUnavailable Code = "PLANNER_UNAVAILABLE"
	CodePlannerBadPlan     Code = "PLANNER_MALFORMED_PLAN"

	// Reward errors
	CodeRewardZeroAmount  Code = "REWARD_ZERO_AMOUNT"
	CodeRewardEmptyReason Code = "REWARD_EMPTY_REASON"

	// Wallet and credential errors
	CodeWalletInvalidAddress     Code = "WALLET_INVALID_ADDRESS"
	CodeCredentialAlreadyMinted  Code = "CREDENTIAL_ALREADY_MINTED"
	CodeCredentialNotTransferable Code = "CREDENTIAL_NOT_TRANSFERABLE"
	CodeCredentialLedgerOffline  Code = "CREDENTIAL_LEDGER_OFFLINE"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeSessionEmptyOwner,
		CodeGoalEmptyOwner,
		CodeGoalEmptyTitle,
		CodeGoalEmptyPlan,
		CodeRewardZeroAmount,
		CodeRewardEmptyReason,
		CodeWalletInvalidAddress,
		CodeLinkGrantInvalid,
		CodeLinkGrantMismatch:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeSessionBadTransition,
		CodeSessionAlreadyActive,
		CodeSessionMaterializing,
		CodeSessionSlotsIncomplete,
		CodeBoardNotLinked,
		CodeCredentialAlreadyMinted,
		CodeCredentialNotTransferable:
		return codes.FailedPrecondition

	// Unauthenticated - expired or missing authorization
	case CodeBoardAuthExpired,
		CodeLinkGrantExpired:
		return codes.Unauthenticated

	// PermissionDenied - owner mismatch
	case CodeSessionOwnerMismatch:
		return codes.PermissionDenied

	// Unavailable - collaborator outages
	case CodeBoardUnavailable,
		CodePlannerUnavailable,
		CodeCredentialLedgerOffline:
		return codes.Unavailable

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}
