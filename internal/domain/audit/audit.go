package audit

import (
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionRegisterPatient    Action = "register_patient"
	ActionUpdateContact      Action = "update_contact"
	ActionCreatePrescription Action = "create_prescription"
	ActionIssueCode          Action = "issue_code"
	ActionRequestQR          Action = "request_qr"
	ActionNotify             Action = "notify"
	ActionDispense           Action = "dispense"
	ActionReportExport       Action = "report_export"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Entry is append-only. Once written it is never mutated or deleted; the
// audit log is the source of truth for what happened.
type Entry struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	// Who
	ActorID uuid.UUID `gorm:"column:actor_id;type:uuid;index"`

	// What
	Action      Action `gorm:"column:action;type:varchar(40);not null;index"`
	SubjectType string `gorm:"column:subject_type;type:varchar(40);not null;index"`
	SubjectID   string `gorm:"column:subject_id;type:varchar(64);index"`

	Outcome Outcome `gorm:"column:outcome;type:varchar(10);not null;index"`
	Reason  string  `gorm:"column:reason;type:text"`
	Detail  string  `gorm:"column:detail;type:text"`
}

func (Entry) TableName() string {
	return "audit.logs"
}
