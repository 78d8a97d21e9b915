// Package schedule defines the shared data model for availability
// scheduling: wall-clock intervals, participant entries, validated entries,
// and consensus windows, plus clock conversion helpers and the interval
// merger used to normalize a single message's extracted intervals.
//
// All values are created fresh per aggregation run; nothing in this package
// retains references to its inputs.
package schedule
