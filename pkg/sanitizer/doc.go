// Package sanitizer normalizes customer contact details before validation
// and storage.
//
// All functions are idempotent. Invalid input yields an empty string rather
// than an error so validators can report the problem in context.
//
//   - Phone numbers: E.164 (+[country][number]) via libphonenumber
//   - Emails: trimmed, domain lowercased
//   - Names and free text: whitespace collapsed and trimmed
package sanitizer
