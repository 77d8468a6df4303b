package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegions are tried in order for numbers without a country prefix.
var DefaultRegions = []string{"US", "GB", "IL"}

// NormalizePhone formats phone as E.164. Numbers without a country prefix
// are resolved against DefaultRegions, preferring a region in which the
// number is valid over one in which it is merely possible. ok is false when
// no region accepts it.
func NormalizePhone(phone string) (e164 string, ok bool) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", false
	}

	var fallback *phonenumbers.PhoneNumber
	for _, region := range DefaultRegions {
		num, err := phonenumbers.Parse(phone, region)
		if err != nil || !phonenumbers.IsPossibleNumber(num) {
			continue
		}
		if phonenumbers.IsValidNumber(num) {
			return phonenumbers.Format(num, phonenumbers.E164), true
		}
		if fallback == nil {
			fallback = num
		}
		if strings.HasPrefix(phone, "+") {
			break
		}
	}

	if fallback == nil {
		return "", false
	}
	return phonenumbers.Format(fallback, phonenumbers.E164), true
}
