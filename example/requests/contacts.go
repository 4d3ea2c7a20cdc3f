package requests

// CreateContact is the body accepted by POST /contacts, as JSON or form.
type CreateContact struct {
	Name  string `json:"name" form:"name" sanitize:"trim,space,strip" validate:"required,min=2,max=100"`
	Email string `json:"email" form:"email" sanitize:"trim,lower" validate:"required,email"`
}

// ListContacts is the query accepted by GET /contacts.
type ListContacts struct {
	Search string `query:"q" sanitize:"trim,lower"`
	Limit  int    `query:"limit" validate:"omitempty,gte=1,lte=100"`
}
