// Package history records release builds in SQLite.
//
// Each build gets a row keyed by its run id, inserted as running when the
// build starts and finished with its outcome. Every open store holds a shared
// file lock next to the database; rows left running by a killed process are
// marked interrupted by the next opener that finds no other holder.
//
// Schema changes bump schemaVersion; users delete the database to adopt the
// new schema.
package history
