package identity

// Package identity is a read/write view over the host identity database
// (passwd, shadow, group).
//
// Parsing is line-preserving: comments, blank lines and unknown lines
// survive a load/rewrite cycle untouched. All rewrites are atomic.
//
// The Source interface is what the reconciliation engine consumes;
// HostFiles is the file-backed implementation.
