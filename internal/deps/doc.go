// Package deps reports whether the external tools the pipeline drives are
// installed.
package deps
