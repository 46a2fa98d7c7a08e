// Package store persists the saved word list. SQLiteStore keeps it as JSON
// in a small key-value table, the way a browser keeps it in local storage;
// MemoryStore offers the same semantics without a file.
package store
