package tracking

// debugMsgFunc is set by the main package to route messages through the
// unified logger.
var debugMsgFunc func(component, message string, sessionID ...string)

// SetDebugFunction allows the main package to provide the debug logger.
func SetDebugFunction(fn func(component, message string, sessionID ...string)) {
	debugMsgFunc = fn
}

// debugMsgVerboseFunc carries per-tick messages that are too chatty for
// normal runs.
var debugMsgVerboseFunc func(component, message string, sessionID ...string)

// SetDebugVerboseFunction provides the verbose-level logger.
func SetDebugVerboseFunction(fn func(component, message string, sessionID ...string)) {
	debugMsgVerboseFunc = fn
}

// debugMsg is a wrapper that handles nil checks.
func debugMsg(component, message string, sessionID ...string) {
	if debugMsgFunc != nil {
		debugMsgFunc(component, message, sessionID...)
	}
}

func debugMsgVerbose(component, message string, sessionID ...string) {
	if debugMsgVerboseFunc != nil {
		debugMsgVerboseFunc(component, message, sessionID...)
	}
}
