// Package textutil turns free-form story text into filesystem-safe names.
package textutil
