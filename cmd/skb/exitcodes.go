package main

const (
	ExitSuccess            = 0 // Success
	ExitError              = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError        = 2 // Configuration error (no repository, invalid settings)
	ExitBackendUnavailable = 3 // Embedding or generation backend unreachable or failing
	ExitNotFound           = 4 // Paper not found
	ExitDuplicate          = 5 // Paper already in the knowledge base
	ExitIndexStale         = 6 // Index built with a different embedding model
)
