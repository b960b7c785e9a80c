package gossip

// Stats accumulates the engine's lifetime counters.
type Stats struct {
	MessagesForwarded int
	IOUsRejected      int
	SyncsInitiated    int
	SyncsCompleted    int
	MessagesProcessed int
}
