package send

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOTPMessage(t *testing.T) {
	t.Run("arabic is the default", func(t *testing.T) {
		msg := OTPMessage("123456", "")
		assert.Contains(t, msg, "123456")
		assert.Contains(t, msg, "رمز التحقق")
		assert.Contains(t, msg, "5 دقائق")
	})

	t.Run("explicit arabic", func(t *testing.T) {
		assert.Equal(t, OTPMessage("123456", ""), OTPMessage("123456", OTPLangArabic))
	})

	t.Run("english template", func(t *testing.T) {
		msg := OTPMessage("987654", OTPLangEnglish)
		assert.Contains(t, msg, "987654")
		assert.Contains(t, msg, "Your verification code is")
		assert.Contains(t, msg, "valid for 5 minutes")
	})

	t.Run("unknown language falls back to arabic", func(t *testing.T) {
		assert.Equal(t, OTPMessage("42", OTPLangArabic), OTPMessage("42", "fr"))
	})

	t.Run("code placeholder fully replaced", func(t *testing.T) {
		assert.False(t, strings.Contains(OTPMessage("55", OTPLangEnglish), "{code}"))
	})
}
