package models

// ResetLink carries the parameters of the emailed reset link.
type ResetLink struct {
	UserID string `json:"userId" query:"userId"`
	Secret string `json:"secret" query:"secret"`
}

// Reset form actions
const (
	ActionSubmit        = "submit"
	ActionToggleNew     = "toggle_new"
	ActionToggleConfirm = "toggle_confirm"
)

// ResetForm is one post of the reset form.
type ResetForm struct {
	AttemptID       string `json:"attempt_id" form:"attempt_id"`
	NewPassword     string `json:"new_password" form:"new_password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
	Action          string `json:"action" form:"action"`
}
