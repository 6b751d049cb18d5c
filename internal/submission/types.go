// Package submission models the variant-shaped onboarding payload and its
// validation. The shape is a tagged union keyed by partnerType; all
// variant-dependent requirements come from the schema resolver.
package submission

import (
	"time"

	"github.com/google/uuid"

	"github.com/kiranafin/dsa-onboarding/constants"
	"github.com/kiranafin/dsa-onboarding/internal/schema"
)

// DocumentAsset is one persisted evidence document. Immutable once stored;
// a re-upload always produces a new object path.
type DocumentAsset struct {
	FieldName  schema.DocumentField       `json:"fieldName"`
	ObjectPath string                     `json:"objectPath"`
	Category   constants.DocumentCategory `json:"category"`
	SizeBytes  int64                      `json:"sizeBytes"`
	MIMEType   string                     `json:"mimeType"`
}

// Partner is one partner row on a partnership submission.
type Partner struct {
	Name         string `json:"name"`
	PANNumber    string `json:"panNumber"`
	SharePercent string `json:"sharePercent,omitempty"`
	Mobile       string `json:"mobile,omitempty"`
}

// Director is one director row on a company submission.
type Director struct {
	Name      string `json:"name"`
	DIN       string `json:"din"`
	PANNumber string `json:"panNumber,omitempty"`
	Mobile    string `json:"mobile,omitempty"`
}

// Trustee is one trustee row on a trust/society submission.
type Trustee struct {
	Name        string `json:"name"`
	Designation string `json:"designation"`
	PANNumber   string `json:"panNumber,omitempty"`
	Mobile      string `json:"mobile,omitempty"`
}

// ExistingLoan is one outstanding-loan row on a kirana store loan submission.
type ExistingLoan struct {
	Lender      string `json:"lender"`
	Outstanding string `json:"outstanding"`
	MonthlyEMI  string `json:"monthlyEmi,omitempty"`
}

// Reference is one personal reference supplied by the applicant.
type Reference struct {
	Name     string `json:"name"`
	Relation string `json:"relation,omitempty"`
	Mobile   string `json:"mobile"`
}

// Submission is the full onboarding payload. Common fields are always
// present; variant fields are zero-valued when the discriminant does not use
// them. Documents holds only what was actually uploaded (absent slot means
// not uploaded, never an empty path).
type Submission struct {
	PartnerType constants.PartnerType `json:"partnerType"`

	// Applicant
	FullName     string `json:"fullName"`
	Email        string `json:"email,omitempty"`
	Mobile       string `json:"mobile"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
	PANNumber    string `json:"panNumber"`
	AadharNumber string `json:"aadharNumber"`

	// Banking
	AccountHolderName string `json:"accountHolderName"`
	AccountNumber     string `json:"accountNumber"`
	IFSCCode          string `json:"ifscCode"`
	BankName          string `json:"bankName"`

	// Entity (variant-specific; zero-valued where not applicable)
	FirmName      string `json:"firmName,omitempty"`
	CompanyName   string `json:"companyName,omitempty"`
	TrustName     string `json:"trustName,omitempty"`
	FirmPANNumber string `json:"firmPanNumber,omitempty"`
	CINNumber     string `json:"cinNumber,omitempty"`
	GSTNumber     string `json:"gstNumber,omitempty"`
	UdyamNumber   string `json:"udyamNumber,omitempty"`

	// Kirana store loan
	ShopName        string `json:"shopName,omitempty"`
	ShopAddress     string `json:"shopAddress,omitempty"`
	MonthlyTurnover string `json:"monthlyTurnover,omitempty"`
	LoanAmount      string `json:"loanAmount,omitempty"`

	// Repeating entities
	Partners      []Partner      `json:"partnerDetails,omitempty"`
	Directors     []Director     `json:"directorDetails,omitempty"`
	Trustees      []Trustee      `json:"trusteeDetails,omitempty"`
	ExistingLoans []ExistingLoan `json:"existingLoans,omitempty"`
	References    []Reference    `json:"references,omitempty"`

	Documents map[schema.DocumentField]DocumentAsset `json:"documents,omitempty"`
}

// EntityName returns the display name of the legal entity, falling back to
// the applicant for individuals.
func (s *Submission) EntityName() string {
	switch s.PartnerType {
	case constants.Proprietorship, constants.Partnership:
		if s.FirmName != "" {
			return s.FirmName
		}
	case constants.PrivatePublicLtd:
		if s.CompanyName != "" {
			return s.CompanyName
		}
	case constants.TrustSociety:
		if s.TrustName != "" {
			return s.TrustName
		}
	case constants.KiranaStoreLoan:
		if s.ShopName != "" {
			return s.ShopName
		}
	}
	return s.FullName
}

// Assets returns the uploaded documents in a stable slot order: required
// slots first (resolver order), then optional ones.
func (s *Submission) Assets() []DocumentAsset {
	ordered := append(schema.RequiredDocuments(s.PartnerType), schema.OptionalDocuments(s.PartnerType)...)
	out := make([]DocumentAsset, 0, len(s.Documents))
	for _, field := range ordered {
		if asset, ok := s.Documents[field]; ok {
			out = append(out, asset)
		}
	}
	return out
}

// Record is the durable row written for a submission. Written exactly once,
// before any artifact or notification work.
type Record struct {
	ID          uuid.UUID
	PartnerType constants.PartnerType
	Payload     *Submission
	SubmittedAt time.Time
}
