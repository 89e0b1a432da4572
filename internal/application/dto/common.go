package dto

// ErrorResponse respuesta de error estándar de la API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Details datos estructurados del error (ej. faltantes de stock).
	Details interface{} `json:"details,omitempty"`
}
