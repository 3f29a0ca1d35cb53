package domain

import "time"

// Application and milestone statuses.
const (
	ApplicationPending  = "pending"
	ApplicationAccepted = "accepted"
	ApplicationRejected = "rejected"

	MilestonePending   = "pending"
	MilestoneSubmitted = "submitted"
	MilestoneApproved  = "approved"
	MilestonePaid      = "paid"
)

type Project struct {
	ProjectID   string     `json:"id" dynamodbav:"project_id"`
	LeadUserID  string     `json:"lead_user_id" dynamodbav:"lead_user_id"`
	Title       string     `json:"title" dynamodbav:"title"`
	Description string     `json:"description" dynamodbav:"description"`
	Status      string     `json:"status" dynamodbav:"status"` // "open" | "closed"
	Enable      bool       `json:"enable" dynamodbav:"enable"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at"`
	CreatedAt   time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time  `json:"updated" dynamodbav:"updated_at"`
}

type ProjectApplication struct {
	ApplicationID string    `json:"id" dynamodbav:"application_id"`
	ProjectID     string    `json:"project_id" dynamodbav:"project_id"`
	ApplicantID   string    `json:"applicant_id" dynamodbav:"applicant_id"`
	CoverLetter   string    `json:"cover_letter" dynamodbav:"cover_letter"`
	Status        string    `json:"status" dynamodbav:"status"`
	CreatedAt     time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt     time.Time `json:"updated" dynamodbav:"updated_at"`
}

// Milestone is a project sub-deliverable with an amount and a status.
type Milestone struct {
	MilestoneID string    `json:"id" dynamodbav:"milestone_id"`
	ProjectID   string    `json:"project_id" dynamodbav:"project_id"`
	Title       string    `json:"title" dynamodbav:"title"`
	Amount      int64     `json:"amount" dynamodbav:"amount"` // cents
	Status      string    `json:"status" dynamodbav:"status"`
	CreatedAt   time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateProjectRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
}

type ApplyRequest struct {
	CoverLetter string `json:"cover_letter" validate:"required"`
}
