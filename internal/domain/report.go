package domain

// ChannelOutcome records how one configured channel's fetch ended.
type ChannelOutcome struct {
	ChannelID string
	Name      string
	Messages  int
	Err       error
}

// ChunkOutcome records how one chunk's delivery ended. Credential names the
// identity that actually delivered the chunk; it is empty when both attempts
// failed.
type ChunkOutcome struct {
	Index      int
	Credential CredentialKind
	Err        error
}

// RunStatus is the overall verdict of a pipeline run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
)

// Report is the operator-facing summary of one run.
type Report struct {
	RunID        string
	Profile      string
	Channels     []ChannelOutcome
	MessageCount int
	Chunks       []ChunkOutcome
	Status       RunStatus
}

// FailedChannels returns the outcomes of channels whose fetch failed.
func (r *Report) FailedChannels() []ChannelOutcome {
	var failed []ChannelOutcome
	for _, c := range r.Channels {
		if c.Err != nil {
			failed = append(failed, c)
		}
	}
	return failed
}

// FailedChunks returns the outcomes of chunks that were never delivered.
func (r *Report) FailedChunks() []ChunkOutcome {
	var failed []ChunkOutcome
	for _, c := range r.Chunks {
		if c.Err != nil {
			failed = append(failed, c)
		}
	}
	return failed
}

// DeliveredChunks counts chunks that reached the output channel.
func (r *Report) DeliveredChunks() int {
	n := 0
	for _, c := range r.Chunks {
		if c.Err == nil {
			n++
		}
	}
	return n
}

// Finish computes the final status from the recorded outcomes. A run with
// nothing delivered at all (when delivery was attempted) is a failure; any
// isolated channel or chunk failure makes it partial.
func (r *Report) Finish() {
	failedChunks := len(r.FailedChunks())
	if len(r.Chunks) > 0 && failedChunks == len(r.Chunks) {
		r.Status = RunFailed
		return
	}
	if failedChunks > 0 || len(r.FailedChannels()) > 0 {
		r.Status = RunPartial
		return
	}
	r.Status = RunSucceeded
}
