// Package language normalizes the order's language code and derives the book's
// writing direction from the language's script.
package language
