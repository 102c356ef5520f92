package detection

// Debug hook installed by the main package's unified logger.
var debugMsgFunc func(component, message string, sessionID ...string)

// SetDebugFunction allows the main package to provide the debug logger.
func SetDebugFunction(fn func(component, message string, sessionID ...string)) {
	debugMsgFunc = fn
}

// debugMsg is a wrapper that handles nil checks.
func debugMsg(component, message string, sessionID ...string) {
	if debugMsgFunc != nil {
		debugMsgFunc(component, message, sessionID...)
	}
}
