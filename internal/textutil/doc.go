// Package textutil normalises titles into filesystem-safe names.
package textutil
