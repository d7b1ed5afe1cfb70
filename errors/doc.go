// Package errors provides the structured error type shared by the VFS layer,
// its backends and the copy engine.
//
// Every error has an ErrorCode. Codes render as readable strings in logs and
// JSON and map to stable negative integers grouped in bands, so callers that
// only keep the number can still print a precise message:
//
//   - common band (-1024 and below): CodeCommon, CodeInvalidArgument,
//     CodeMethodNotFound, CodePrecondition, CodeUnknown, CodeInternal
//   - plugin band (-1152 and below): CodePluginFormat, CodePluginLoad,
//     CodePluginInit, CodePluginNotFound, CodeInvalidURL, CodePluginExists,
//     CodePluginBusy
//   - I/O band (-1280 and below): CodeNotExist, CodeExist, CodePermission,
//     CodeIO, CodeNotDir, CodeAborted, CodeCrossDevice
//
// Creating and wrapping:
//
//	err := errors.New(errors.CodeInvalidURL, "missing backend qualifier")
//	err = errors.Wrap(cause, errors.CodeIO, "cannot read source file")
//
// A backend that lacks a primitive is reported uniformly:
//
//	err := errors.MethodNotFound("chmod", "s3")
//	errors.GetCode(err)          // CodeMethodNotFound
//	err.Context()["method"]      // "chmod"
//	err.Context()["plugin"]      // "s3"
//
// Raw backend errors are classified with Translate, which recognises the
// io/fs sentinels and common errno values.
//
// The classification never triggers an automatic retry. The copy engine uses
// it only to decide whether a Retry button is worth offering to the operator.
package errors
