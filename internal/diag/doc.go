// Package diag defines the failure and finding model shared by every stage of
// the class rewriting pipeline.
//
// # Purpose
//
//   - Give every failure a stable Code whose range encodes its kind
//     (malformed input, annotation shape, unsupported signature, usage,
//     consistency), so callers can branch with errors.Is.
//   - Attribute every failure to a module (internal class name) and, where
//     applicable, to a member ("name descriptor").
//   - Offer light-weight utilities (Reporter, Bag) that let stages emit
//     non-fatal findings without coupling to storage or formatting.
//
// # Errors versus diagnostics
//
// Hard failures are returned as *Error values and abort the module currently
// being processed (or, for usage errors, the whole build). Recoverable
// conditions, such as a wildcard generic on a subscriber, are reported as
// warning Diagnostics through a Reporter and processing continues.
//
// # Emitting diagnostics
//
// Stages report through a Reporter:
//
//	diag.ReportWarning(rep, diag.ChkOverriddenSubscriber, loc, msg).
//		WithNote(baseLoc, "overridden subscriber").
//		Emit()
//
// BagReporter collects into a Bag and DedupReporter drops repeats.
//
// Package diag does no IO. Rendering lives in the CLI and internal/report.
package diag
