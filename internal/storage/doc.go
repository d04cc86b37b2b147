// Package storage persists users, habits and their completion marks.
//
// It holds no business logic: due dates, streaks and reminders are computed
// by the callers from the records returned here. Two drivers exist:
//   - "sqlite": a database file migrated with goose
//   - "memory": process-local maps, for tests and throwaway runs
package storage
