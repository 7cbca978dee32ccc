package internal

import "github.com/digineo/go-logwrap"

var (
	// Logger is shared by the transport packages of this module.
	Logger = &logwrap.Instance{}

	// SetLogger allows updating the Logger. For details, see
	// "github.com/digineo/go-logwrap".Instance.SetLogger.
	SetLogger = Logger.SetLogger
)
