package constants

import (
	"strings"
)

// PartnerType discriminates which legal-entity schema governs a submission.
type PartnerType string

const (
	Individual       PartnerType = "individual"
	Proprietorship   PartnerType = "proprietorship"
	Partnership      PartnerType = "partnership"
	PrivatePublicLtd PartnerType = "private_public_ltd"
	TrustSociety     PartnerType = "trust_society"

	// KiranaStoreLoan is the retail-shop loan variant. It shares the
	// submission pipeline but not the legal-entity schema family.
	KiranaStoreLoan PartnerType = "kirana_store_loan"
)

var allPartnerTypes = []PartnerType{
	Individual,
	Proprietorship,
	Partnership,
	PrivatePublicLtd,
	TrustSociety,
	KiranaStoreLoan,
}

func AllPartnerTypes() []PartnerType {
	out := make([]PartnerType, len(allPartnerTypes))
	copy(out, allPartnerTypes)
	return out
}

func PartnerTypeStrings() []string {
	result := make([]string, len(allPartnerTypes))
	for i, pt := range allPartnerTypes {
		result[i] = string(pt)
	}
	return result
}

// CanonicalizePartnerType maps free-form client input onto a known variant.
func CanonicalizePartnerType(input string) (PartnerType, bool) {
	if input == "" {
		return "", false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")

	// synonyms map
	synonyms := map[string]PartnerType{
		"sole_proprietorship":   Proprietorship,
		"proprietor":            Proprietorship,
		"pvt_ltd":               PrivatePublicLtd,
		"private_limited":       PrivatePublicLtd,
		"public_limited":        PrivatePublicLtd,
		"llp":                   Partnership,
		"trust":                 TrustSociety,
		"society":               TrustSociety,
		"kirana":                KiranaStoreLoan,
		"kirana_loan":           KiranaStoreLoan,
		"shop_loan":             KiranaStoreLoan,
	}

	if pt, ok := synonyms[normalized]; ok {
		return pt, true
	}

	for _, pt := range allPartnerTypes {
		if normalized == string(pt) {
			return pt, true
		}
	}

	return "", false
}
