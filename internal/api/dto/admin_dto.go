package dto

// UpdateRoleRequest payload.
type UpdateRoleRequest struct {
	Role string `json:"role" form:"role"`
}
