package submission

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kiranafin/dsa-onboarding/constants"
	"github.com/kiranafin/dsa-onboarding/internal/common"
	"github.com/kiranafin/dsa-onboarding/internal/schema"
)

// BuildSubmissionJSONSchema returns a JSON-Schema (draft 2020-12 subset) for
// one variant as a generic map. Required keys come from the resolver, so the
// wire shape can never drift from what artifact assembly expects.
func BuildSubmissionJSONSchema(pt constants.PartnerType) map[string]any {
	props := map[string]any{
		"partnerType":       map[string]any{"type": "string", "enum": []string{string(pt)}},
		"fullName":          map[string]any{"type": "string", "minLength": 1},
		"email":             map[string]any{"type": "string"},
		"mobile":            map[string]any{"type": "string", "pattern": `^[6-9][0-9]{9}$`},
		"address":           map[string]any{"type": "string", "minLength": 1},
		"city":              map[string]any{"type": "string", "minLength": 1},
		"state":             map[string]any{"type": "string", "minLength": 1},
		"pincode":           map[string]any{"type": "string", "pattern": `^[0-9]{6}$`},
		"panNumber":         map[string]any{"type": "string", "pattern": `^[A-Z]{5}[0-9]{4}[A-Z]{1}$`},
		"aadharNumber":      map[string]any{"type": "string", "pattern": `^[0-9]{12}$`},
		"accountHolderName": map[string]any{"type": "string", "minLength": 1},
		"accountNumber":     map[string]any{"type": "string", "pattern": `^[0-9]{9,18}$`},
		"ifscCode":          map[string]any{"type": "string", "pattern": `^[A-Z]{4}0[A-Z0-9]{6}$`},
		"bankName":          map[string]any{"type": "string", "minLength": 1},

		"firmName":      map[string]any{"type": "string"},
		"companyName":   map[string]any{"type": "string"},
		"trustName":     map[string]any{"type": "string"},
		"firmPanNumber": map[string]any{"type": "string", "pattern": `^[A-Z]{5}[0-9]{4}[A-Z]{1}$`},
		"cinNumber":     map[string]any{"type": "string"},
		"gstNumber":     map[string]any{"type": "string"},
		"udyamNumber":   map[string]any{"type": "string"},

		"shopName":        map[string]any{"type": "string"},
		"shopAddress":     map[string]any{"type": "string"},
		"monthlyTurnover": map[string]any{"type": "string"},
		"loanAmount":      map[string]any{"type": "string"},

		"partnerDetails":  entityArrayProp("name", "panNumber"),
		"directorDetails": entityArrayProp("name", "din"),
		"trusteeDetails":  entityArrayProp("name", "designation"),
		"existingLoans":   entityArrayProp("lender", "outstanding"),
		"references":      entityArrayProp("name", "mobile"),

		"documents": map[string]any{"type": "object"},
	}

	required := make([]string, 0, 16)
	required = append(required, "partnerType")
	for _, f := range schema.RequiredFields(pt) {
		required = append(required, string(f))
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func entityArrayProp(requiredKeys ...string) map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":     "object",
			"required": requiredKeys,
		},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// Decode parses and validates a raw request body into a Submission. The
// discriminant is canonicalized first; the variant schema then gates every
// required field before any downstream work runs.
func Decode(raw []byte) (*Submission, error) {
	var probe struct {
		PartnerType string `json:"partnerType"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, common.NewAppError("DECODE_ERROR", "request body is not valid JSON", common.ErrInvalidInput)
	}

	pt, ok := constants.CanonicalizePartnerType(probe.PartnerType)
	if !ok {
		return nil, common.NewAppError("DECODE_ERROR",
			fmt.Sprintf("unknown partner type %q", probe.PartnerType), common.ErrInvalidInput)
	}

	if err := ValidateJSONAgainstSchema(BuildSubmissionJSONSchema(pt), raw); err != nil {
		return nil, common.NewAppError("VALIDATION_ERROR", err.Error(), common.ErrValidation)
	}

	var sub Submission
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, common.NewAppError("DECODE_ERROR", "request body does not match submission shape", common.ErrInvalidInput)
	}
	sub.PartnerType = pt

	if err := validateIdentifiers(&sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// validateIdentifiers re-checks the fixed-format identifiers with field-scoped
// messages. The JSON schema already rejects most of these; this pass produces
// the precise per-field wording clients render.
func validateIdentifiers(sub *Submission) error {
	v := common.NewValidator()
	v.Field("panNumber", sub.PANNumber, common.Required, common.PAN)
	v.Field("aadharNumber", sub.AadharNumber, common.Required, common.Aadhar)
	v.Field("ifscCode", sub.IFSCCode, common.Required, common.IFSC)
	v.Field("mobile", sub.Mobile, common.Required, common.Mobile)
	if sub.Email != "" {
		v.Field("email", sub.Email, common.Email)
	}
	if sub.FirmPANNumber != "" {
		v.Field("firmPanNumber", sub.FirmPANNumber, common.PAN)
	}
	if sub.GSTNumber != "" {
		v.Field("gstNumber", sub.GSTNumber, common.GST)
	}
	if sub.UdyamNumber != "" {
		v.Field("udyamNumber", sub.UdyamNumber, common.Udyam)
	}
	return v.Error()
}

// CheckRequiredDocuments verifies the uploaded set covers the resolver's
// required set for the variant. Returns the missing slots in resolver order.
func CheckRequiredDocuments(sub *Submission) []schema.DocumentField {
	var missing []schema.DocumentField
	for _, field := range schema.RequiredDocuments(sub.PartnerType) {
		asset, ok := sub.Documents[field]
		if !ok || asset.ObjectPath == "" {
			missing = append(missing, field)
		}
	}
	return missing
}
