// Package storage persists employees, projects, tasks and the schedule audit
// log in SQLite (modernc.org/sqlite, no cgo).
//
// Multi-row schedule changes go through Store.InProject, which serializes
// work per project and runs it in one transaction.
package storage
