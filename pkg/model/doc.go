// Package model defines the declarative form definitions the engine runs on.
// A FormModel lists its fields in display order; each Field carries a semantic
// kind (which selects the masker), a required flag, and ValidationRule entries
// with string parameters so definitions can live in YAML next to the binary.
// The built-in sign-up, password-reset and login forms are embedded under
// forms/ and exposed through Builtin.
package model
