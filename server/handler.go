package server

import (
	"html/template"

	"github.com/gofiber/fiber/v2"

	"github.com/oarkflow/resetpass"
	"github.com/oarkflow/resetpass/errors"
)

// ParseRequest bind the query string on GET and the form body on POST
func ParseRequest[T any](ctx *fiber.Ctx) (T, error) {
	var t T
	var err error
	if ctx.Method() == fiber.MethodGet {
		err = ctx.QueryParser(&t)
	} else if ctx.Method() == fiber.MethodPost {
		err = ctx.BodyParser(&t)
	}
	return t, err
}

// page is the data handed to the reset view
type page struct {
	Title              string
	FormAction         string
	AppLink            template.URL
	AttemptID          string
	Error              string
	NewPassword        string
	ConfirmPassword    string
	ShowNew            bool
	ShowConfirm        bool
	PreconditionFailed bool
	Submitting         bool
	Succeeded          bool
}

func (s *Server) page(a *resetpass.Attempt) page {
	p := page{
		Title:      s.Config.Title,
		FormAction: s.Config.FormAction,
		// the deep link scheme is configuration, not user input
		AppLink: template.URL(s.Config.AppLink),
	}
	switch a.View() {
	case resetpass.ViewPreconditionFailed:
		p.PreconditionFailed = true
		p.Error = a.Error
		return p
	case resetpass.ViewSucceeded:
		p.Succeeded = true
		return p
	case resetpass.ViewSubmitting:
		p.Submitting = true
	case resetpass.ViewFailed:
		p.Error = a.Error
	}
	p.AttemptID = a.ID
	p.NewPassword = a.NewPassword
	p.ConfirmPassword = a.ConfirmPassword
	p.ShowNew = !a.Masked(resetpass.FieldNew)
	p.ShowConfirm = !a.Masked(resetpass.FieldConfirm)
	return p
}

// render the reset view for the attempt; err decides the status code.
// Internal failures come without an attempt and go to the error handler.
func (s *Server) render(ctx *fiber.Ctx, a *resetpass.Attempt, err error) error {
	if a == nil {
		if err == nil {
			err = fiber.ErrInternalServerError
		}
		return err
	}
	return ctx.Status(errors.StatusCode(err)).Render("reset", s.page(a), "layouts/main")
}
