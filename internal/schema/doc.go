// Package schema holds the declarative resource model: typed attributes
// grouped into named schemas, the store they are registered in, and the
// two operations that walk them.
//
// Check walks the response attributes of a schema and asks each
// attribute's Type whether the received value is valid, collecting every
// mismatch into a Result instead of stopping at the first one.
//
// Example walks the payload attributes in declaration order and asks each
// Type for an example value. Types may perform network calls while doing
// so (see package schemaid), which is why both operations take a context.
//
//	users := schema.New("user", schema.WithSelfRoot())
//	_ = users.Add(schema.NewAttribute("id", schema.Integer{}, schema.For(schema.Response)))
//	_ = users.Add(schema.NewAttribute("email", schema.Email{}))
//
//	payload, err := users.Example(ctx) // {"user": {"email": "..."}}
//	result, err := users.Check(ctx, body)
//	if !result.Valid() { ... }
package schema
