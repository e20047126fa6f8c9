// Package me define los contratos JSON de los endpoints del usuario actual.
package me

// PermissionsResponse es el set efectivo de permisos, ordenado.
type PermissionsResponse struct {
	Permissions []string `json:"permissions"`
}

// RoutesResponse lista las rutas de UI navegables y la raíz de redirect.
type RoutesResponse struct {
	Routes     []string `json:"routes"`
	RedirectTo string   `json:"redirect_to"`
}

// RouteCheckResponse responde si una ruta puntual es accesible.
type RouteCheckResponse struct {
	Path      string `json:"path"`
	CanAccess bool   `json:"can_access"`
}
