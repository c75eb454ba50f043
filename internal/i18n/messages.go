// Package i18n serves the bilingual (Bangla/English) user-facing auth
// messages. Only messages this service originates are catalogued;
// application copy stays with the web client.
package i18n

import (
	"net/http"

	"golang.org/x/text/language"
)

// Message keys.
const (
	KeySessionExpired     = "session_expired"
	KeyLoginFailed        = "login_failed"
	KeyRegistrationFailed = "registration_failed"
	KeyUnauthorized       = "unauthorized"
	KeyOTPInvalid         = "otp_invalid"
	KeyOTPCooldown        = "otp_cooldown"
	KeyOTPResendFailed    = "otp_resend_failed"
)

var supported = []language.Tag{
	language.English, // default
	language.Bengali,
}

var messages = map[string][2]string{
	KeySessionExpired: {
		"Session expired. Please log in again.",
		"সেশনের মেয়াদ শেষ। আবার লগ ইন করুন।",
	},
	KeyLoginFailed: {
		"Login failed. Please try again.",
		"লগ ইন ব্যর্থ হয়েছে। আবার চেষ্টা করুন।",
	},
	KeyRegistrationFailed: {
		"Registration failed. Please try again.",
		"নিবন্ধন ব্যর্থ হয়েছে। আবার চেষ্টা করুন।",
	},
	KeyUnauthorized: {
		"You don't have permission to access this page.",
		"এই পৃষ্ঠাটি দেখার অনুমতি আপনার নেই।",
	},
	KeyOTPInvalid: {
		"Invalid or expired OTP. Please try again.",
		"ভুল বা মেয়াদোত্তীর্ণ ওটিপি। আবার চেষ্টা করুন।",
	},
	KeyOTPCooldown: {
		"Please wait before requesting another code.",
		"নতুন কোড চাওয়ার আগে একটু অপেক্ষা করুন।",
	},
	KeyOTPResendFailed: {
		"Failed to resend OTP. Please try again.",
		"ওটিপি পুনরায় পাঠানো যায়নি। আবার চেষ্টা করুন।",
	},
}

// Catalog matches request languages against the supported set.
type Catalog struct {
	matcher language.Matcher
}

// NewCatalog constructs the message catalog.
func NewCatalog() *Catalog {
	return &Catalog{matcher: language.NewMatcher(supported)}
}

// Localize resolves a message key for the request's Accept-Language.
// An upstream-provided override wins when present; unknown keys fall back
// to the override or empty.
func (c *Catalog) Localize(r *http.Request, key, override string) string {
	if override != "" {
		return override
	}
	pair, ok := messages[key]
	if !ok {
		return ""
	}
	tag, _ := language.MatchStrings(c.matcher, r.Header.Get("Accept-Language"))
	if base, _ := tag.Base(); base.String() == "bn" {
		return pair[1]
	}
	return pair[0]
}

// Lookup resolves a key for an explicit language tag, used off-request.
func (c *Catalog) Lookup(tag language.Tag, key string) string {
	pair, ok := messages[key]
	if !ok {
		return ""
	}
	if base, _ := tag.Base(); base.String() == "bn" {
		return pair[1]
	}
	return pair[0]
}
