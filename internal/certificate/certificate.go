// Package certificate renders deterministic goal certificates.
package certificate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shxuryaaz/agilow-goal-forge/internal/platform/id"
)

// Kind distinguishes the certificate occasion.
type Kind string

const (
	// KindCreation marks the start of a tracked goal.
	KindCreation Kind = "creation"
	// KindCompletion marks every weekly group reaching done.
	KindCompletion Kind = "completion"
)

// Certificate is an issued certificate record. The verification code is
// derived from the content, so a tampered certificate no longer verifies.
type Certificate struct {
	ID               string
	Owner            string
	GoalID           string
	GoalTitle        string
	Kind             Kind
	IssuedAt         time.Time
	VerificationCode string
}

// Issue creates a certificate for the goal.
func Issue(owner, goalID, goalTitle string, kind Kind, now func() time.Time, idGenerator func() (string, error)) (Certificate, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	owner = strings.TrimSpace(owner)
	goalID = strings.TrimSpace(goalID)
	goalTitle = strings.TrimSpace(goalTitle)
	if owner == "" || goalID == "" || goalTitle == "" {
		return Certificate{}, fmt.Errorf("certificate needs owner, goal id and title")
	}

	certID, err := idGenerator()
	if err != nil {
		return Certificate{}, fmt.Errorf("generate certificate id: %w", err)
	}

	cert := Certificate{
		ID:        certID,
		Owner:     owner,
		GoalID:    goalID,
		GoalTitle: goalTitle,
		Kind:      kind,
		IssuedAt:  now().UTC(),
	}
	cert.VerificationCode = verificationCode(cert)
	return cert, nil
}

// Verify reports whether the certificate content still matches its
// verification code.
func Verify(cert Certificate) bool {
	return cert.VerificationCode != "" && cert.VerificationCode == verificationCode(cert)
}

// verificationCode hashes the immutable certificate content.
func verificationCode(cert Certificate) string {
	content := strings.Join([]string{
		cert.ID,
		cert.Owner,
		cert.GoalID,
		cert.GoalTitle,
		string(cert.Kind),
		cert.IssuedAt.UTC().Format(time.RFC3339),
	}, "\n")
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:8])
}
