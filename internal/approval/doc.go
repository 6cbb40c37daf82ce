// Package approval implements the two-step confirmation gate that
// guards destructive operations on protected accounts.
//
// A protected operation is never executed on first request. The first
// call opens a short approval window and is denied; a second call by
// the same actor for the same target and action inside that window
// consumes the approval and permits the operation. Windows are keyed
// per actor, so two administrators confirming the same deletion never
// satisfy each other's windows.
//
// The gate fails closed: any storage or directory failure denies the
// operation.
package approval
