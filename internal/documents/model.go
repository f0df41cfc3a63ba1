package documents

import "time"

// Roles a document can play inside a session.
const (
	RoleTechnicalSpec = "tz"
	RoleProposal      = "kp"
)

// Lifecycle statuses of an uploaded document.
const (
	StatusUploading  = "uploading"
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusError      = "error"
)

// Document represents an uploaded file belonging to an analysis session.
type Document struct {
	ID            string
	SessionID     string
	Role          string
	FileName      string
	MimeType      string
	SizeBytes     int64
	StorageKey    string
	ExtractedText string
	Status        string
	ErrorMessage  string
	CreatedAt     time.Time
}

// ValidRole reports whether role is a recognized document role.
func ValidRole(role string) bool {
	return role == RoleTechnicalSpec || role == RoleProposal
}
