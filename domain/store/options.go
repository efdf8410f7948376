package store

// WithConnectionID filters by the "id_connection" column.
func WithConnectionID(id string) Option {
	return WithCondition("id_connection", id)
}

// WithLinkedAccountID filters by the "id_linked_user" column.
func WithLinkedAccountID(id string) Option {
	return WithCondition("id_linked_user", id)
}

// WithProjectID filters by the "id_project" column.
func WithProjectID(id string) Option {
	return WithCondition("id_project", id)
}

// WithTenantID filters by the "id_user" column.
func WithTenantID(id string) Option {
	return WithCondition("id_user", id)
}

// WithProvider filters by the "provider" column.
func WithProvider(provider string) Option {
	return WithCondition("provider", provider)
}

// WithStatus filters by the "status" column.
func WithStatus(status string) Option {
	return WithCondition("status", status)
}

// WithType filters by the "type" column.
func WithType(t string) Option {
	return WithCondition("type", t)
}
