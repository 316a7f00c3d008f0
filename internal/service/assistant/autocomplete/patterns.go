package autocomplete

import (
	"regexp"

	svc "flowbot/internal/domain/services/assistant"
)

// Pattern maps an in-progress query shape to the entity family it asks about.
type Pattern struct {
	Intent svc.EntityIntent
	Expr   *regexp.Regexp
}

// DefaultPatterns are tried in order; the first match wins and the
// remaining patterns are not evaluated.
var DefaultPatterns = []Pattern{
	{svc.IntentContact, regexp.MustCompile(`(?i)\b(messages?|calls?|chats?|contacts?|texts?|talked|spoke|communicat\w*)\b`)},
	{svc.IntentTransaction, regexp.MustCompile(`(?i)\b(transactions?|transfers?|payments?|paid|amounts?|money|funds)\b`)},
	{svc.IntentLocation, regexp.MustCompile(`(?i)\b(locations?|where|gps|near|visited|places?|coordinates)\b`)},
	{svc.IntentCrypto, regexp.MustCompile(`(?i)\b(crypto\w*|bitcoin|btc|ethereum|eth|wallets?|addresses)\b`)},
	{svc.IntentDevice, regexp.MustCompile(`(?i)\b(devices?|phones?|iphone|android|imei|handsets?)\b`)},
}

// Classify returns the intent of the first matching pattern.
func Classify(patterns []Pattern, text string) (svc.EntityIntent, bool) {
	for _, p := range patterns {
		if p.Expr.MatchString(text) {
			return p.Intent, true
		}
	}
	return "", false
}
