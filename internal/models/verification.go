package models

import "time"

// IdentityStatus is the outcome of the civil-identity stage.
type IdentityStatus string

const (
	IdentityVerified    IdentityStatus = "IDENTITY_VERIFIED"
	IdentityMismatch    IdentityStatus = "IDENTITY_MISMATCH"
	IDInvalid           IdentityStatus = "ID_INVALID"
	ProviderUnreachable IdentityStatus = "PROVIDER_UNREACHABLE"
	ErrorValidation     IdentityStatus = "ERROR_VALIDATION"
)

// ProfessionalStatus is the outcome of the professional-registry stage.
type ProfessionalStatus string

const (
	ProfessionalVerified ProfessionalStatus = "VERIFIED"
	NotRegistered        ProfessionalStatus = "NOT_REGISTERED"
	WrongProfession      ProfessionalStatus = "WRONG_PROFESSION"
	NotLicensed          ProfessionalStatus = "NOT_LICENSED"
	NameInconsistent     ProfessionalStatus = "NAME_INCONSISTENT"
	ProviderError        ProfessionalStatus = "PROVIDER_ERROR"
)

// FinalStatus is the pipeline disposition.
type FinalStatus string

const (
	StatusPending                FinalStatus = "PENDING"
	StatusApproved               FinalStatus = "APPROVED"
	StatusRejectedAtIdentity     FinalStatus = "REJECTED_AT_IDENTITY"
	StatusRejectedAtProfessional FinalStatus = "REJECTED_AT_PROFESSIONAL"
	StatusManualReview           FinalStatus = "MANUAL_REVIEW"
)

// VerificationRequest is the immutable signup input consumed once by the pipeline.
type VerificationRequest struct {
	NationalID       string `json:"nationalId"`
	CheckDigit       string `json:"checkDigit"`
	FullName         string `json:"fullName"`
	BirthDate        string `json:"birthDate,omitempty"`
	ClaimedSpecialty string `json:"claimedSpecialty,omitempty"`
}

type IdentityVerificationResult struct {
	Status            IdentityStatus `json:"status"`
	NationalID        string         `json:"nationalId"`
	CheckDigit        string         `json:"checkDigit"`
	NameProvided      string         `json:"nameProvided"`
	NameOfficial      string         `json:"nameOfficial,omitempty"`
	BirthDateOfficial string         `json:"birthDateOfficial,omitempty"`
	IDCardStatus      string         `json:"idCardStatus,omitempty"`
	MatchScore        *int           `json:"matchScore,omitempty"`
	Errors            []string       `json:"errors,omitempty"`
	Provider          string         `json:"provider"`
	VerifiedAt        time.Time      `json:"verifiedAt"`
	RawEvidence       []byte         `json:"-"`
}

// ProfessionalData is the registry record attached to a professional result.
type ProfessionalData struct {
	NameOfficial       string   `json:"nameOfficial"`
	Profession         string   `json:"profession"`
	LicenseStatus      string   `json:"licenseStatus"`
	Specialties        []string `json:"specialties"`
	RegistrationNumber string   `json:"registrationNumber,omitempty"`
}

type ProfessionalVerificationResult struct {
	Status           ProfessionalStatus `json:"status"`
	NationalID       string             `json:"nationalId"`
	CheckDigit       string             `json:"checkDigit"`
	NameProvided     string             `json:"nameProvided"`
	ProfessionalData *ProfessionalData  `json:"professionalData,omitempty"`
	Inconsistencies  []string           `json:"inconsistencies,omitempty"`
	Errors           []string           `json:"errors,omitempty"`
	VerifiedAt       time.Time          `json:"verifiedAt"`
	RawEvidence      []byte             `json:"-"`
}

// PipelineResult reduces both stages into one disposition. RawEvidence from the
// stage results never leaves the audit trail and is serialized separately by the
// record store, encrypted in production.
type PipelineResult struct {
	FinalStatus          FinalStatus                     `json:"finalStatus"`
	IdentityResult       *IdentityVerificationResult     `json:"identityResult"`
	ProfessionalResult   *ProfessionalVerificationResult `json:"professionalResult,omitempty"`
	Errors               []string                        `json:"errors,omitempty"`
	Warnings             []string                        `json:"warnings,omitempty"`
	RequiresManualReview bool                            `json:"requiresManualReview"`
	VerifiedAt           time.Time                       `json:"verifiedAt"`
}
