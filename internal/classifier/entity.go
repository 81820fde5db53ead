package classifier

// Source records which detector produced a candidate.
type Source string

const (
	// SourcePattern marks candidates produced by the regex recognizers.
	SourcePattern Source = "pattern"
	// SourceExternal marks spans supplied by an external NLP collaborator.
	SourceExternal Source = "external"
)

// Entity labels used internally. Recognizer YAML uses Presidio-style
// SCREAMING_SNAKE entity names; entityToType maps them to these.
const (
	LabelAadhaar     = "aadhaar"
	LabelPAN         = "pan"
	LabelPassport    = "passport"
	LabelCreditCard  = "credit_card"
	LabelBankAccount = "bank_account"
	LabelEmail       = "email"
	LabelPhone       = "phone"
	LabelIPAddress   = "ip_address"
	LabelDOB         = "dob"
	LabelPersonName  = "person_name"
	LabelAddress     = "address"
)

// Entity is a single detected PII span. Offsets are byte positions into the
// scanned text, End exclusive.
type Entity struct {
	Label         string  `json:"label"`
	Value         string  `json:"value"`
	Start         int     `json:"start"`
	End           int     `json:"end"`
	Confidence    float64 `json:"confidence"`
	Sensitivity   int     `json:"sensitivity"` // 1-3 from recognizer; 0 means unset (treated as 1)
	Source        Source  `json:"source"`
	IsPlaceholder bool    `json:"is_placeholder,omitempty"`
}

// Length returns the span length in bytes.
func (e Entity) Length() int { return e.End - e.Start }

// Overlaps reports whether the two spans share at least one byte.
func (e Entity) Overlaps(o Entity) bool { return e.Start < o.End && o.Start < e.End }

// labelSensitivity is the default sensitivity per label, used for spans that
// arrive without one (external NLP spans in particular).
var labelSensitivity = map[string]int{
	LabelAadhaar:     3,
	LabelPAN:         3,
	LabelPassport:    3,
	LabelCreditCard:  3,
	LabelBankAccount: 3,
	LabelEmail:       2,
	LabelPhone:       2,
	LabelIPAddress:   2,
	LabelDOB:         2,
	LabelPersonName:  1,
	LabelAddress:     1,
}

// SensitivityFor returns the default sensitivity (1-3) for a label.
// Unknown labels default to 1.
func SensitivityFor(label string) int {
	if s, ok := labelSensitivity[label]; ok {
		return s
	}
	return 1
}
