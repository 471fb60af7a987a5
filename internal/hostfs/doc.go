package hostfs

// Package hostfs provides safe access helpers for the identity and
// configuration files this tool rewrites.
//
// Every mutation of a shared file (passwd, shadow, group, the ledger)
// goes through WriteFileAtomic so a crash mid-write never leaves a
// partial line behind.
