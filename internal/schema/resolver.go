// Package schema is the single source of truth for variant-dependent
// submission shape: which business fields and which evidence documents each
// partner type requires, and which repeating-entity sheet its review
// workbook carries. Both request validation and artifact assembly consult
// this package, so a field required in one place is never absent in the other.
package schema

import (
	"fmt"

	"github.com/kiranafin/dsa-onboarding/constants"
)

// FieldName identifies a business field on a submission.
type FieldName string

// DocumentField identifies an evidence-document slot on a submission.
type DocumentField string

// Evidence-document slots. Slot names double as form field names on the
// client, so they are part of the wire contract.
const (
	DocPANCard             DocumentField = "panCard"
	DocAadharCard          DocumentField = "aadharCard"
	DocPhotograph          DocumentField = "photograph"
	DocFirmPANCard         DocumentField = "firmPanCard"
	DocGSTCertificate      DocumentField = "gstCertificate"
	DocUdyamCertificate    DocumentField = "udyamCertificate"
	DocAddressProof        DocumentField = "addressProof"
	DocPartnershipDeed     DocumentField = "partnershipDeed"
	DocIncorporationCert   DocumentField = "certificateOfIncorporation"
	DocMOAAOA              DocumentField = "moaAoa"
	DocTrustDeed           DocumentField = "trustDeed"
	DocRegistrationCert    DocumentField = "registrationCertificate"
	DocShopPhoto           DocumentField = "shopPhoto"
	DocCancelledCheque     DocumentField = "cancelledCheque"
	DocBankStatement       DocumentField = "bankStatement"
	DocITR                 DocumentField = "itrDocument"
	DocExistingLoanProof   DocumentField = "existingLoanStatement"
)

// commonFields are required on every variant.
var commonFields = []FieldName{
	"fullName",
	"mobile",
	"address",
	"city",
	"state",
	"pincode",
	"panNumber",
	"aadharNumber",
	"accountHolderName",
	"accountNumber",
	"ifscCode",
	"bankName",
}

// variantFields are required on top of commonFields, per variant.
var variantFields = map[constants.PartnerType][]FieldName{
	constants.Individual: {},
	constants.Proprietorship: {
		"firmName",
	},
	constants.Partnership: {
		"firmName",
		"firmPanNumber",
		"partnerDetails",
	},
	constants.PrivatePublicLtd: {
		"companyName",
		"firmPanNumber",
		"cinNumber",
		"directorDetails",
	},
	constants.TrustSociety: {
		"trustName",
		"firmPanNumber",
		"trusteeDetails",
	},
	constants.KiranaStoreLoan: {
		"shopName",
		"shopAddress",
		"monthlyTurnover",
		"loanAmount",
	},
}

// commonDocuments are required on every variant. The banking document is
// mandatory even for variants whose own document set is empty.
var commonDocuments = []DocumentField{
	DocPANCard,
	DocAadharCard,
	DocCancelledCheque,
}

// variantDocuments are required on top of commonDocuments, per variant.
var variantDocuments = map[constants.PartnerType][]DocumentField{
	constants.Individual: {},
	constants.Proprietorship: {
		DocAddressProof,
	},
	constants.Partnership: {
		DocFirmPANCard,
		DocPartnershipDeed,
	},
	constants.PrivatePublicLtd: {
		DocFirmPANCard,
		DocIncorporationCert,
		DocMOAAOA,
	},
	constants.TrustSociety: {
		DocFirmPANCard,
		DocTrustDeed,
		DocRegistrationCert,
	},
	constants.KiranaStoreLoan: {
		DocShopPhoto,
	},
}

// optionalDocuments may be supplied on any variant; absence is normal and is
// reported as "Not Uploaded" on the workbook's document-links sheet.
var optionalDocuments = map[constants.PartnerType][]DocumentField{
	constants.Individual:       {DocPhotograph, DocGSTCertificate, DocUdyamCertificate, DocBankStatement, DocITR},
	constants.Proprietorship:   {DocPhotograph, DocGSTCertificate, DocUdyamCertificate, DocBankStatement, DocITR},
	constants.Partnership:      {DocPhotograph, DocGSTCertificate, DocUdyamCertificate, DocBankStatement, DocITR},
	constants.PrivatePublicLtd: {DocPhotograph, DocGSTCertificate, DocUdyamCertificate, DocBankStatement, DocITR},
	constants.TrustSociety:     {DocPhotograph, DocGSTCertificate, DocUdyamCertificate, DocBankStatement, DocITR},
	constants.KiranaStoreLoan:  {DocPhotograph, DocGSTCertificate, DocUdyamCertificate, DocBankStatement, DocITR, DocExistingLoanProof},
}

// documentCategories buckets every slot for storage prefixes and archive folders.
var documentCategories = map[DocumentField]constants.DocumentCategory{
	DocPANCard:           constants.CategoryPersonal,
	DocAadharCard:        constants.CategoryPersonal,
	DocPhotograph:        constants.CategoryPersonal,
	DocFirmPANCard:       constants.CategoryBusiness,
	DocGSTCertificate:    constants.CategoryBusiness,
	DocUdyamCertificate:  constants.CategoryBusiness,
	DocAddressProof:      constants.CategoryBusiness,
	DocPartnershipDeed:   constants.CategoryBusiness,
	DocIncorporationCert: constants.CategoryBusiness,
	DocMOAAOA:            constants.CategoryBusiness,
	DocTrustDeed:         constants.CategoryBusiness,
	DocRegistrationCert:  constants.CategoryBusiness,
	DocShopPhoto:         constants.CategoryBusiness,
	DocCancelledCheque:   constants.CategoryBanking,
	DocBankStatement:     constants.CategoryBanking,
	DocITR:               constants.CategoryAdditional,
	DocExistingLoanProof: constants.CategoryAdditional,
}

// RequiredFields returns the business fields the variant must supply.
// An unknown variant is a programming error, not bad user input: every
// discriminant is canonicalized before reaching this package.
func RequiredFields(pt constants.PartnerType) []FieldName {
	vf, ok := variantFields[pt]
	if !ok {
		panic(fmt.Sprintf("schema: unknown partner type %q", pt))
	}
	out := make([]FieldName, 0, len(commonFields)+len(vf))
	out = append(out, commonFields...)
	out = append(out, vf...)
	return out
}

// RequiredDocuments returns the evidence documents the variant must supply.
func RequiredDocuments(pt constants.PartnerType) []DocumentField {
	vd, ok := variantDocuments[pt]
	if !ok {
		panic(fmt.Sprintf("schema: unknown partner type %q", pt))
	}
	out := make([]DocumentField, 0, len(commonDocuments)+len(vd))
	out = append(out, commonDocuments...)
	out = append(out, vd...)
	return out
}

// OptionalDocuments returns the documents the variant may supply.
func OptionalDocuments(pt constants.PartnerType) []DocumentField {
	od, ok := optionalDocuments[pt]
	if !ok {
		panic(fmt.Sprintf("schema: unknown partner type %q", pt))
	}
	out := make([]DocumentField, len(od))
	copy(out, od)
	return out
}

// CategoryOf returns the storage category for a document slot.
func CategoryOf(field DocumentField) constants.DocumentCategory {
	cat, ok := documentCategories[field]
	if !ok {
		// Unmapped slots land with the catch-all additional documents.
		return constants.CategoryAdditional
	}
	return cat
}

// EntitySheet names the repeating-entity sheet for the variant's review
// workbook. ok is false for variants without one; the sheet is then omitted
// entirely rather than emitted empty.
func EntitySheet(pt constants.PartnerType) (title string, ok bool) {
	switch pt {
	case constants.Partnership:
		return "Partner Details", true
	case constants.PrivatePublicLtd:
		return "Director Details", true
	case constants.TrustSociety:
		return "Trustee Details", true
	case constants.KiranaStoreLoan:
		return "Existing Loans", true
	case constants.Individual, constants.Proprietorship:
		return "", false
	}
	panic(fmt.Sprintf("schema: unknown partner type %q", pt))
}
