// package tasks implements the snapshot-and-prune cycle for generated mixes.
//
// The core abstraction is [Engine], which turns one trigger (manual press,
// scheduled tick, external cron ping) into one [models.SyncReport]:
//
//	resolve catalog → list existing names → per selected mix:
//	  duplicate check → create + populate + favorite → record outcome
//	→ retention scan → delete expired snapshots → persist report
//
// Per-mix failures are isolated; only "not connected" and "no mixes
// selected" are fatal to a run. The engine emits [ProgressUpdate] values
// over a channel for non-blocking status reporting to CLI/UI layers.
//
// [Scheduler] owns the daily timer that drives scheduled runs.
package tasks
