package send

import "strings"

// Idiomas suportados para a mensagem de OTP. Árabe é o padrão.
const (
	OTPLangArabic  = "ar"
	OTPLangEnglish = "en"
)

// Templates fixos do OTP. Os únicos campos interpolados são o código
// e a cláusula de validade de 5 minutos.
const (
	otpTemplateArabic  = "رمز التحقق الخاص بك هو: {code}\nهذا الرمز صالح لمدة 5 دقائق."
	otpTemplateEnglish = "Your verification code is: {code}\nThis code is valid for 5 minutes."
)

// OTPMessage monta a mensagem de OTP no idioma pedido
func OTPMessage(code, lang string) string {
	template := otpTemplateArabic
	if lang == OTPLangEnglish {
		template = otpTemplateEnglish
	}
	return strings.ReplaceAll(template, "{code}", code)
}
