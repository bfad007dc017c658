package fanout

import (
	"time"

	"wasgate/internal/domain/webhook"
)

// Headers padrão de toda entrega. Os headers do usuário prevalecem.
const (
	defaultContentType = "application/json"
	defaultUserAgent   = "Wasgate-Webhook/1.0"
)

// BuildPayload compõe o corpo da entrega: campos base do evento,
// campos específicos e, por cima, o custom_payload do webhook.
// Em conflito de chave o overlay do usuário vence.
func BuildPayload(evt webhook.Event, wh *webhook.Webhook) map[string]any {
	payload := map[string]any{
		"event":     evt.Name,
		"sessionId": evt.SessionID,
		"timestamp": evt.Timestamp.UTC().Format(time.RFC3339),
	}
	if evt.Success != nil {
		payload["success"] = *evt.Success
	}
	for key, value := range evt.Fields {
		payload[key] = value
	}
	return deepMerge(payload, wh.CustomPayload)
}

// deepMerge aplica overlay sobre base recursivamente; mapas aninhados
// são mesclados, qualquer outro valor do overlay substitui o da base
func deepMerge(base, overlay map[string]any) map[string]any {
	for key, value := range overlay {
		overlayMap, overlayIsMap := value.(map[string]any)
		baseMap, baseIsMap := base[key].(map[string]any)
		if overlayIsMap && baseIsMap {
			base[key] = deepMerge(baseMap, overlayMap)
			continue
		}
		base[key] = value
	}
	return base
}

// BuildHeaders mescla os headers do usuário sobre os padrões
func BuildHeaders(wh *webhook.Webhook) map[string]string {
	headers := map[string]string{
		"Content-Type": defaultContentType,
		"User-Agent":   defaultUserAgent,
	}
	for key, value := range wh.Headers {
		headers[key] = value
	}
	return headers
}
