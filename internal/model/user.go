package model

import "time"

// User is a row of the users table.  The booking engine only reads ID and
// Batch; the remaining fields belong to the directory.
type User struct {
    ID         uint64
    Name       string
    Email      string
    EmployeeID string
    Batch      Batch
    CreatedAt  time.Time
    UpdatedAt  time.Time
}
