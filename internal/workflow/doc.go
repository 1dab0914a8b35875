// Package workflow holds the rules that govern a procurement project's steps:
// completion and reversal, the derived current-step pointer and progress,
// checklist and note mutations, and propagation of step template edits.
//
// Every function mutates the project it is given and never touches storage.
// Callers persist the whole project afterwards.
package workflow
