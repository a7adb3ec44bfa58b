package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// Duplicated as strings to avoid an import cycle.
var enUS = map[Code]string{
	"SESSION_EMPTY_OWNER":                 "An owner is required to start a session.",
	"SESSION_OWNER_MISMATCH":              "This session belongs to someone else.",
	"SESSION_INVALID_STATE_TRANSITION":    "That action is not available right now.",
	"SESSION_ALREADY_ACTIVE":              "Your goal is already set up. Send a progress update instead.",
	"SESSION_MATERIALIZATION_IN_PROGRESS": "Hang tight, your goal is still being set up.",
	"SESSION_SLOTS_INCOMPLETE":            "A few questions are still unanswered before we can build your plan.",
	"GOAL_EMPTY_OWNER":                    "A goal needs an owner.",
	"GOAL_EMPTY_TITLE":                    "A goal needs a title.",
	"GOAL_EMPTY_PLAN":                     "A goal needs at least one weekly task group.",
	"BOARD_NOT_LINKED":                    "Your task board is not connected yet. Link it first, then try again.",
	"BOARD_AUTH_EXPIRED":                  "Your task board authorization expired. Please re-link your board.",
	"BOARD_UNAVAILABLE":                   "The task board service is unavailable right now. Please try again shortly.",
	"LINK_GRANT_INVALID":                  "That link request is invalid. Start the board connection again.",
	"LINK_GRANT_EXPIRED":                  "That link request expired. Start the board connection again.",
	"LINK_GRANT_MISMATCH":                 "That link request does not match this account.",
	"PLANNER_UNAVAILABLE":                 "The planning assistant is unavailable. A basic plan was used instead.",
	"PLANNER_MALFORMED_PLAN":              "The planning assistant returned something unusable. Please try again.",
	"REWARD_ZERO_AMOUNT":                  "Reward entries need a non-zero amount.",
	"REWARD_EMPTY_REASON":                 "Reward entries need a reason.",
	"WALLET_INVALID_ADDRESS":              "{{.address}} is not a valid wallet address.",
	"CREDENTIAL_ALREADY_MINTED":           "A credential for this goal already exists.",
	"CREDENTIAL_NOT_TRANSFERABLE":         "Goal credentials are soulbound and cannot be transferred.",
	"CREDENTIAL_LEDGER_OFFLINE":           "The credential ledger is not configured; no credential was minted.",
	"NOT_FOUND":                           "We could not find that record.",
}
