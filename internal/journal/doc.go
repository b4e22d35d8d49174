// Package journal records pipe activity in SQLite.
//
// Every push, pull and host receive appends an Entry. The journal also keeps
// the object IDs a host created on its most recent receive per pipe, which
// lets the next receive update those objects in place instead of appending
// duplicates. Schema changes land as new files under migrations/.
package journal
