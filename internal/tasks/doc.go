// Package tasks implements the upload wizard's state machine and batch engine.
//
// [Transition] is a pure function over ([models.WorkflowState], [Event]) with
// no HTTP or storage dependencies, so the step-ordering rules are unit
// testable in isolation. The HTTP layer re-derives a session's position from
// its data and consults Transition before mutating anything.
//
// [TransferEngine] runs the upload step: for each selected image, in
// selection order, download bytes from the session's source and upload them
// to Commons, producing exactly one [models.UploadResult] per image. One
// image's failure never aborts the batch; only a revoked Wikimedia
// authorization short-circuits it. Progress is reported over a channel with
// non-blocking sends.
package tasks
