// Package catalog keeps a SQLite history of processed studies so operators
// can see which studies were classified, when, and where they were placed.
//
// Writers take an advisory file lock next to the database so concurrent CLI
// invocations append without tripping over SQLite busy errors.
package catalog
