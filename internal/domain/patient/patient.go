package patient

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	FirstName   string    `gorm:"column:first_name;type:varchar(100);not null"`
	LastName    string    `gorm:"column:last_name;type:varchar(100);not null"`
	DateOfBirth time.Time `gorm:"column:date_of_birth;not null"`

	// HealthCardRef is a one-way digest of the raw health card number.
	// The raw value is never persisted; lookups re-encode the presented card.
	HealthCardRef string `gorm:"column:health_card_ref;type:varchar(64);uniqueIndex;not null"`

	Phone string `gorm:"column:phone;type:varchar(30)"`
	Email string `gorm:"column:email;type:varchar(255)"`
}

func (Patient) TableName() string {
	return "clinical.patients"
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// EncodeHealthCard produces the stored reference for a raw health card number.
func EncodeHealthCard(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

type RegisterPatientCommand struct {
	HealthCardNo string
	FirstName    string
	LastName     string
	DateOfBirth  time.Time
	Phone        string
	Email        string
}

type UpdateContactCommand struct {
	Phone *string
	Email *string
}
