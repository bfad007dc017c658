package apikey

import "errors"

var (
	// ErrKeyNotFound indica que a chave não existe ou está inativa
	ErrKeyNotFound = errors.New("api key not found")

	// ErrKeyRequired indica que nenhuma chave foi informada na requisição
	ErrKeyRequired = errors.New("API key is required")

	// ErrKeyInvalid indica que a chave informada não é válida
	ErrKeyInvalid = errors.New("Invalid API key")
)
