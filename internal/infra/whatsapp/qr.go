package whatsapp

import (
	"encoding/base64"
	"os"

	"github.com/mdp/qrterminal/v3"
	qrcode "github.com/skip2/go-qrcode"
)

// PrintQRToTerminal desenha o QR no console do processo, útil em desenvolvimento
func PrintQRToTerminal(code string) {
	qrterminal.GenerateHalfBlock(code, qrterminal.L, os.Stdout)
}

// EncodeQRToDataURL converte o payload do QR em um PNG base64 pronto
// para exibição (data URL)
func EncodeQRToDataURL(code string) (string, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
