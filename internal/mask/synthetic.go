package mask

import (
	"fmt"

	"github.com/scrubd-io/scrubd/internal/classifier"
)

// syntheticNames cycle for person name replacement. Deliberately common
// placeholder-register names so a reader recognizes them as fakes even
// before noticing the watermark.
var syntheticNames = []string{
	"Arjun Kumar",
	"Priya Sharma",
	"Rahul Verma",
	"Anita Desai",
	"Vikram Singh",
}

// syntheticValue generates a format-valid fake for a label. Checksummed
// identifiers (cards, Aadhaar) get correct check digits so the fake survives
// downstream format validation; the [SYN-n] watermark appended by the caller
// marks it as generated.
func syntheticValue(label string, n int) string {
	switch label {
	case classifier.LabelEmail:
		return fmt.Sprintf("user%d@example.net", n)
	case classifier.LabelPhone:
		return fmt.Sprintf("9%09d", n%1000000000)
	case classifier.LabelCreditCard:
		body := fmt.Sprintf("4%014d", n)
		return body + string(classifier.LuhnCheckDigit(body))
	case classifier.LabelAadhaar:
		body := fmt.Sprintf("2%010d", n)
		return body + string(classifier.VerhoeffCheckDigit(body))
	case classifier.LabelPAN:
		return fmt.Sprintf("AAAPZ%04dA", n%10000)
	case classifier.LabelPassport:
		return fmt.Sprintf("Z%07d", 1000000+n%9000000)
	case classifier.LabelBankAccount:
		return fmt.Sprintf("5%011d", n)
	case classifier.LabelDOB:
		return fmt.Sprintf("01/01/%d", 1970+n%30)
	case classifier.LabelIPAddress:
		return fmt.Sprintf("10.0.%d.%d", n/256%256, n%256)
	case classifier.LabelPersonName:
		return syntheticNames[(n-1)%len(syntheticNames)]
	case classifier.LabelAddress:
		return fmt.Sprintf("%d Sample Street", n)
	default:
		return fullToken(label)
	}
}
