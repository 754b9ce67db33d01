package model

import "time"

// ScanRun summarises one scan for the scan history table.
type ScanRun struct {
	ID         string
	Market     Market
	StartedAt  time.Time
	Duration   time.Duration
	Scanned    int
	Qualified  int
	Inserted   int
	Duplicates int
	Failures   int
	Top        string
}
