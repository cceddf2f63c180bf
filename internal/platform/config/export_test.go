package config

// WriteExitMessageForTest exposes the exit message formatter to external tests.
var WriteExitMessageForTest = writeExitMessage
