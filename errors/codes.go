package errors

// ErrorCode identifies an error condition.
//
// Codes are strings for readable logs and JSON, and each one also maps to a
// stable negative integer (see Errno) grouped in bands: the common band starts
// at -1024, the plugin band at -1152 and the I/O band at -1280.
type ErrorCode string

const (
	// CodeOK is the zero code. It never appears on a returned error.
	CodeOK ErrorCode = "OK"

	// Common band.

	// CodeCommon is the generic VFS failure and the base of the common band.
	CodeCommon ErrorCode = "VFS_ERROR"

	// CodeInvalidArgument indicates a malformed argument or configuration value.
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// CodeMethodNotFound indicates the backend does not implement the requested primitive.
	CodeMethodNotFound ErrorCode = "METHOD_NOT_FOUND"

	// CodePrecondition indicates an operation was refused before any I/O happened,
	// such as copying a file onto itself.
	CodePrecondition ErrorCode = "PRECONDITION_FAILED"

	// CodeInternal indicates a bug or an impossible state.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// Plugin band.

	// CodePluginFormat indicates the module does not export a usable entry symbol.
	CodePluginFormat ErrorCode = "PLUGIN_FORMAT"

	// CodePluginLoad indicates the module file could not be opened.
	CodePluginLoad ErrorCode = "PLUGIN_LOAD"

	// CodePluginInit indicates the module entry or its load hook failed.
	CodePluginInit ErrorCode = "PLUGIN_INIT"

	// CodePluginNotFound indicates no backend is registered under the name.
	CodePluginNotFound ErrorCode = "PLUGIN_NOT_FOUND"

	// CodeInvalidURL indicates a path carries neither a valid qualifier nor the default root sigil.
	CodeInvalidURL ErrorCode = "INVALID_URL"

	// CodePluginExists indicates a backend with the same name is already registered.
	CodePluginExists ErrorCode = "PLUGIN_EXISTS"

	// CodePluginBusy indicates the backend still has open file handles.
	CodePluginBusy ErrorCode = "PLUGIN_BUSY"

	// I/O band.

	// CodeNotExist indicates the file or directory does not exist.
	CodeNotExist ErrorCode = "NOT_EXIST"

	// CodeExist indicates the file or directory already exists.
	CodeExist ErrorCode = "EXIST"

	// CodePermission indicates the backend refused access.
	CodePermission ErrorCode = "PERMISSION_DENIED"

	// CodeIO indicates a transient read, write or transport failure.
	CodeIO ErrorCode = "IO_ERROR"

	// CodeNotDir indicates a directory was expected.
	CodeNotDir ErrorCode = "NOT_A_DIRECTORY"

	// CodeAborted indicates the operator cancelled the operation.
	CodeAborted ErrorCode = "ABORTED"

	// CodeCrossDevice indicates a rename between different devices.
	CodeCrossDevice ErrorCode = "CROSS_DEVICE"

	// CodeUnknown is used for errors that carry no code.
	CodeUnknown ErrorCode = "UNKNOWN"
)

const (
	errnoCommon = -1024
	errnoPlugin = errnoCommon - 128
	errnoIO     = errnoCommon - 256
)

var errnos = map[ErrorCode]int{
	CodeOK:              0,
	CodeCommon:          errnoCommon,
	CodeInvalidArgument: errnoCommon - 1,
	CodeMethodNotFound:  errnoCommon - 2,
	CodePrecondition:    errnoCommon - 3,
	CodeUnknown:         errnoCommon - 4,
	CodeInternal:        errnoCommon - 5,

	CodePluginFormat:   errnoPlugin,
	CodePluginLoad:     errnoPlugin - 1,
	CodePluginInit:     errnoPlugin - 2,
	CodePluginNotFound: errnoPlugin - 3,
	CodeInvalidURL:     errnoPlugin - 4,
	CodePluginExists:   errnoPlugin - 5,
	CodePluginBusy:     errnoPlugin - 6,

	CodeNotExist:   errnoIO,
	CodeExist:      errnoIO - 1,
	CodePermission: errnoIO - 2,
	CodeIO:         errnoIO - 3,
	CodeNotDir:     errnoIO - 4,
	CodeAborted:    errnoIO - 5,

	CodeCrossDevice: errnoIO - 6,
}

var texts = map[ErrorCode]string{
	CodeOK:              "Success",
	CodeCommon:          "Unknown VFS error",
	CodeInvalidArgument: "Invalid argument",
	CodeMethodNotFound:  "Method not found",
	CodePrecondition:    "Precondition failed",
	CodeUnknown:         "Unknown error",
	CodeInternal:        "Internal error",

	CodePluginFormat:   "Invalid plugin format",
	CodePluginLoad:     "Error loading plugin",
	CodePluginInit:     "Plugin initialization failed",
	CodePluginNotFound: "Plugin not found",
	CodeInvalidURL:     "Invalid URL",
	CodePluginExists:   "Plugin already loaded",
	CodePluginBusy:     "Plugin has open files",

	CodeNotExist:   "No such file or directory",
	CodeExist:      "File exists",
	CodePermission: "Permission denied",
	CodeIO:         "Input/output error",
	CodeNotDir:     "Not a directory",
	CodeAborted:    "Operation aborted",

	CodeCrossDevice: "Invalid cross-device link",
}

// Errno returns the stable integer for the code. Unknown codes map to the
// common band base.
func (c ErrorCode) Errno() int {
	if n, ok := errnos[c]; ok {
		return n
	}
	return errnoCommon
}

// Text returns the human-readable description of the code.
func (c ErrorCode) Text() string {
	if s, ok := texts[c]; ok {
		return s
	}
	return texts[CodeCommon]
}

// Band reports which band the code belongs to: "common", "plugin" or "io".
func (c ErrorCode) Band() string {
	n := c.Errno()
	switch {
	case n == 0:
		return "ok"
	case n > errnoPlugin:
		return "common"
	case n > errnoIO:
		return "plugin"
	default:
		return "io"
	}
}

// FromErrno maps an integer back to its code. The second result is false
// when the integer is not one of the defined values.
func FromErrno(n int) (ErrorCode, bool) {
	for code, v := range errnos {
		if v == n {
			return code, true
		}
	}
	return CodeUnknown, false
}
