// Package workspace owns the per-item work directory under the output root:
// the deterministic artifact names, directory preparation, the normalised
// "already converted" check, relocation of the final file, and cleanup of
// work directories abandoned by interrupted runs.
package workspace
