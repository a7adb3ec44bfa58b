package errors

import "github.com/shxuryaaz/agilow-goal-forge/internal/platform/errors/i18n"

// formatUserMessage renders a domain error through the message catalog.
func formatUserMessage(e *Error) string {
	catalog := i18n.GetCatalog("en-US")
	return catalog.Format(string(e.Code), e.Metadata)
}
