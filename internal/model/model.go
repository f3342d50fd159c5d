package model

// Status is the lifecycle state of an applicant's evaluation.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	// StatusExpired is part of the record layout but no transition
	// produces it: a timed-out evaluation completes with an empty
	// submission instead.
	StatusExpired Status = "EXPIRED"
)

// Valid reports whether s is one of the declared statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusExpired:
		return true
	}
	return false
}

// Applicant is the persisted record for one candidate.
// StartTime and EndTime are milliseconds since the Unix epoch.
type Applicant struct {
	ID             string
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	DownloadLink   string
	Status         Status
	StartTime      *int64
	EndTime        *int64
	SubmissionLink *string
	IsSuspended    bool
}

// ApplicantPatch is a partial update. Nil fields are left untouched by
// the store's merge; set fields overwrite.
type ApplicantPatch struct {
	FirstName      *string
	LastName       *string
	Email          *string
	Phone          *string
	DownloadLink   *string
	Status         *Status
	StartTime      *int64
	EndTime        *int64
	SubmissionLink *string
	IsSuspended    *bool
}

// Empty reports whether the patch sets no fields.
func (p ApplicantPatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil &&
		p.Phone == nil && p.DownloadLink == nil && p.Status == nil &&
		p.StartTime == nil && p.EndTime == nil && p.SubmissionLink == nil &&
		p.IsSuspended == nil
}

type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RolePostulante Role = "POSTULANTE"
)

// Identity is the outcome of resolving a login email. It is transient
// and never persisted; ApplicantID is empty for administrators.
type Identity struct {
	Role        Role
	Email       string
	ApplicantID string
}
